package models

import "time"

// ConnectionStatus is the health state of a venue's terminal link.
type ConnectionStatus string

const (
	// ConnectionOnline means heartbeats are arriving and the terminal's instance
	// identity is stable.
	ConnectionOnline ConnectionStatus = "ONLINE"
	// ConnectionNeedsReconciliation means the terminal reported a different instance
	// id than the one on record, which usually indicates its local database was
	// restored from backup. Financial data around the restore point needs manual
	// review before the venue can be trusted again.
	ConnectionNeedsReconciliation ConnectionStatus = "NEEDS_RECONCILIATION"
)

// IsValid reports whether s is a known connection status.
func (s ConnectionStatus) IsValid() bool {
	return s == ConnectionOnline || s == ConnectionNeedsReconciliation
}

// ReconciliationAlert is the operator-facing escalation raised when a
// terminal's instance identity changes. Published to the alerts topic.
type ReconciliationAlert struct {
	VenueID            string    `json:"venue_id"`
	VenueName          string    `json:"venue_name"`
	PreviousInstanceID string    `json:"previous_instance_id"`
	NewInstanceID      string    `json:"new_instance_id"`
	ProducerVersion    string    `json:"producer_version"`
	DetectedAt         time.Time `json:"detected_at"`
	Message            string    `json:"message"`
}

// VenueConnectionListing joins venue identity with its latest heartbeat
// observation for the operational dashboard. Status fields are nil when no
// heartbeat was ever recorded.
type VenueConnectionListing struct {
	VenueID         string     `json:"venue_id" db:"venue_id"`
	Name            string     `json:"name" db:"name"`
	PosVendor       string     `json:"pos_vendor" db:"pos_vendor"`
	PosConnectivity string     `json:"pos_connectivity" db:"pos_connectivity"`
	Status          *string    `json:"status" db:"status"`
	InstanceID      *string    `json:"instance_id" db:"instance_id"`
	ProducerVersion *string    `json:"producer_version" db:"producer_version"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at" db:"last_heartbeat_at"`
}

// PosConnectionStatus is the single source of truth for terminal liveness per venue.
// One row per venue; absence means no heartbeat was ever received.
type PosConnectionStatus struct {
	VenueID         string           `json:"venue_id" db:"venue_id"`
	Status          ConnectionStatus `json:"status" db:"status"`
	InstanceID      string           `json:"instance_id" db:"instance_id"`
	ProducerVersion string           `json:"producer_version" db:"producer_version"`
	LastHeartbeatAt time.Time        `json:"last_heartbeat_at" db:"last_heartbeat_at"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}
