package models

import (
	"encoding/json"
	"time"
)

// OrderStatus is the lifecycle state of a synchronized order. DELETED is terminal:
// orders are never hard-removed, deletion events only transition the status.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusDeleted   OrderStatus = "DELETED"
)

// IsValid reports whether s is a known order status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCompleted, OrderStatusCancelled, OrderStatusDeleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed out of s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDeleted
}

// OrderPaymentStatus tracks settlement progress as reported by the terminal.
type OrderPaymentStatus string

const (
	OrderPaymentPending OrderPaymentStatus = "PENDING"
	OrderPaymentPartial OrderPaymentStatus = "PARTIAL"
	OrderPaymentPaid    OrderPaymentStatus = "PAID"
)

// IsValid reports whether s is a known payment status.
func (s OrderPaymentStatus) IsValid() bool {
	switch s {
	case OrderPaymentPending, OrderPaymentPartial, OrderPaymentPaid:
		return true
	}
	return false
}

// KitchenStatus is the preparation state. Synchronized orders start at the standard
// initial value; the kitchen display system owns later transitions.
type KitchenStatus string

const (
	KitchenStatusPending KitchenStatus = "PENDING"
	KitchenStatusServed  KitchenStatus = "SERVED"
)

// OrderType distinguishes service models. POS-synchronized orders default to dine-in.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "DINE_IN"
	OrderTypeTakeAway OrderType = "TAKE_AWAY"
	OrderTypeDelivery OrderType = "DELIVERY"
)

// Order is a synchronized POS order. Natural key: (venue_id, external_id), with the
// invariant of exactly one non-deleted row per natural key. The external id is the
// compound string instanceId:shiftExternalId:folio assigned by the terminal.
type Order struct {
	ID             string             `json:"id" db:"id"`
	VenueID        string             `json:"venue_id" db:"venue_id"`
	ShiftID        *string            `json:"shift_id,omitempty" db:"shift_id"`
	TableID        *string            `json:"table_id,omitempty" db:"table_id"`
	StaffID        *string            `json:"staff_id,omitempty" db:"staff_id"`
	ExternalID     string             `json:"external_id" db:"external_id"`
	OrderNumber    string             `json:"order_number" db:"order_number"`
	Origin         string             `json:"origin" db:"origin"`
	Status         OrderStatus        `json:"status" db:"status"`
	PaymentStatus  OrderPaymentStatus `json:"payment_status" db:"payment_status"`
	KitchenStatus  KitchenStatus      `json:"kitchen_status" db:"kitchen_status"`
	OrderType      OrderType          `json:"order_type" db:"order_type"`
	Subtotal       float64            `json:"subtotal" db:"subtotal"`
	TaxAmount      float64            `json:"tax_amount" db:"tax_amount"`
	DiscountAmount float64            `json:"discount_amount" db:"discount_amount"`
	TipAmount      float64            `json:"tip_amount" db:"tip_amount"`
	Total          float64            `json:"total" db:"total"`
	RawData        json.RawMessage    `json:"raw_data,omitempty" db:"raw_data"`
	PlacedAt       time.Time          `json:"placed_at" db:"placed_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" db:"updated_at"`
}

// OrderItem is a line item on a synchronized order. Natural key:
// (order_id, external_id). Unlike orders, deleted items are hard-removed.
type OrderItem struct {
	ID                string    `json:"id" db:"id"`
	OrderID           string    `json:"order_id" db:"order_id"`
	ExternalID        string    `json:"external_id" db:"external_id"`
	ProductExternalID *string   `json:"product_external_id,omitempty" db:"product_external_id"`
	ProductName       string    `json:"product_name" db:"product_name"`
	Quantity          float64   `json:"quantity" db:"quantity"`
	UnitPrice         float64   `json:"unit_price" db:"unit_price"`
	DiscountAmount    float64   `json:"discount_amount" db:"discount_amount"`
	TaxAmount         float64   `json:"tax_amount" db:"tax_amount"`
	Total             float64   `json:"total" db:"total"`
	Notes             string    `json:"notes" db:"notes"`
	Sequence          int       `json:"sequence" db:"sequence"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
