package models

import (
	"fmt"
	"strings"
	"time"
)

// Staff is a person record. Terminal-synchronized staff are placeholder accounts:
// they carry a deterministic synthetic email and no password hash, which is how the
// portal tells them apart from self-registered users.
type Staff struct {
	ID           string    `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash *string   `json:"-" db:"password_hash"`
	Synced       bool      `json:"synced" db:"synced"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// StaffVenueAssignment links a staff member to a venue under the terminal-local
// staff code. The same person can hold assignments at multiple venues, each with
// its own code and PIN. Natural key: (venue_id, terminal_code).
type StaffVenueAssignment struct {
	ID           string    `json:"id" db:"id"`
	StaffID      string    `json:"staff_id" db:"staff_id"`
	VenueID      string    `json:"venue_id" db:"venue_id"`
	TerminalCode string    `json:"terminal_code" db:"terminal_code"`
	PIN          string    `json:"pin" db:"pin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// SyntheticStaffEmail is the deterministic placeholder address for a terminal staff
// code at a venue. Resolution relies on it being stable, so the format must never
// change for existing rows.
func SyntheticStaffEmail(venueID, terminalCode string) string {
	short := venueID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("pos-%s-%s@sync.avoqado.io", strings.ToLower(short), strings.ToLower(terminalCode))
}

// SplitStaffName breaks a terminal free-text name into first/last parts.
// Terminals send a single display name; everything after the first word is the last name.
func SplitStaffName(name string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
