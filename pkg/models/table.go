package models

import "time"

// DefaultTableCapacity is assigned when a table is created lazily from a POS event,
// since terminals do not report seating capacity.
const DefaultTableCapacity = 4

// Table is a venue floor table. Natural key: (venue_id, number). Tables referenced
// by a POS event before they exist in the portal are created on the fly.
type Table struct {
	ID        string    `json:"id" db:"id"`
	VenueID   string    `json:"venue_id" db:"venue_id"`
	Number    string    `json:"number" db:"number"`
	Capacity  int       `json:"capacity" db:"capacity"`
	AreaID    *string   `json:"area_id,omitempty" db:"area_id"`
	Origin    string    `json:"origin" db:"origin"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Area is a floor section as configured on the terminal. Natural key:
// (venue_id, external_id).
type Area struct {
	ID         string    `json:"id" db:"id"`
	VenueID    string    `json:"venue_id" db:"venue_id"`
	ExternalID string    `json:"external_id" db:"external_id"`
	Name       string    `json:"name" db:"name"`
	Origin     string    `json:"origin" db:"origin"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
