package models

import "time"

// VenuePosConnectivity mirrors the dashboard-facing connectivity flag on the venue row.
// It is derived from the connection status table by the heartbeat monitor.
type VenuePosConnectivity string

const (
	VenuePosConnected    VenuePosConnectivity = "connected"
	VenuePosError        VenuePosConnectivity = "error"
	VenuePosDisconnected VenuePosConnectivity = "disconnected"
)

// Venue is the tenant boundary. Every synchronized entity is scoped to a venue,
// and a venue must exist before any event for it is accepted.
type Venue struct {
	ID              string               `json:"id" db:"id"`
	OrganizationID  string               `json:"organization_id" db:"organization_id"`
	Name            string               `json:"name" db:"name"`
	PosVendor       string               `json:"pos_vendor" db:"pos_vendor"`
	PaymentFeeRate  float64              `json:"payment_fee_rate" db:"payment_fee_rate"`
	PosConnectivity VenuePosConnectivity `json:"pos_connectivity" db:"pos_connectivity"`
	CreatedAt       time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at" db:"updated_at"`
}
