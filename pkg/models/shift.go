package models

import (
	"encoding/json"
	"time"
)

// ShiftStatus is the lifecycle state of a till shift.
type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "OPEN"
	ShiftStatusClosed ShiftStatus = "CLOSED"
)

// IsValid reports whether s is a known shift status.
func (s ShiftStatus) IsValid() bool {
	return s == ShiftStatusOpen || s == ShiftStatusClosed
}

// Shift is a till session at a venue. Natural key: (venue_id, external_id) while the
// shift is open; terminals reuse external ids after close, so aggregate totals are only
// ever computed from orders linked by shift row id, never by external id.
type Shift struct {
	ID           string          `json:"id" db:"id"`
	VenueID      string          `json:"venue_id" db:"venue_id"`
	StaffID      *string         `json:"staff_id,omitempty" db:"staff_id"`
	ExternalID   string          `json:"external_id" db:"external_id"`
	Origin       string          `json:"origin" db:"origin"`
	Status       ShiftStatus     `json:"status" db:"status"`
	StartTime    time.Time       `json:"start_time" db:"start_time"`
	EndTime      *time.Time      `json:"end_time,omitempty" db:"end_time"`
	StartingCash float64         `json:"starting_cash" db:"starting_cash"`
	EndingCash   float64         `json:"ending_cash" db:"ending_cash"`
	TotalSales   float64         `json:"total_sales" db:"total_sales"`
	TotalTips    float64         `json:"total_tips" db:"total_tips"`
	TotalOrders  int             `json:"total_orders" db:"total_orders"`
	RawData      json.RawMessage `json:"raw_data,omitempty" db:"raw_data"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// ShiftPatch carries the fields a later shift event may refresh on the open
// shift. Nil fields were absent from the event and keep their stored value.
type ShiftPatch struct {
	ID           string
	StaffID      *string
	StartingCash *float64
	RawData      json.RawMessage
}

// ShiftTotals is the aggregate recomputed at close time from the shift's own orders.
type ShiftTotals struct {
	TotalSales  float64 `db:"total_sales"`
	TotalTips   float64 `db:"total_tips"`
	TotalOrders int     `db:"total_orders"`
}
