package models

import "time"

// PaymentMethod is the canonical payment method category. Terminal-local method ids
// are mapped into one of these through the catalog carried on the event.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCredit PaymentMethod = "CREDIT"
	PaymentMethodDebit  PaymentMethod = "DEBIT"
	PaymentMethodOther  PaymentMethod = "OTHER"
)

// IsValid reports whether m is a known payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCredit, PaymentMethodDebit, PaymentMethodOther:
		return true
	}
	return false
}

// Payment records one settlement line against an order. Created exactly once per
// settlement: redelivered events are absorbed by counting existing payments first.
type Payment struct {
	ID          string        `json:"id" db:"id"`
	OrderID     string        `json:"order_id" db:"order_id"`
	VenueID     string        `json:"venue_id" db:"venue_id"`
	Amount      float64       `json:"amount" db:"amount"`
	TipAmount   float64       `json:"tip_amount" db:"tip_amount"`
	Method      PaymentMethod `json:"method" db:"method"`
	MethodRef   string        `json:"method_ref" db:"method_ref"`
	FeeAmount   float64       `json:"fee_amount" db:"fee_amount"`
	NetAmount   float64       `json:"net_amount" db:"net_amount"`
	ExternalRef string        `json:"external_ref" db:"external_ref"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// PaymentAllocation ties a payment to the order balance it covers. One allocation per
// payment today; kept as its own row so split-tender refinements do not need a schema
// change.
type PaymentAllocation struct {
	ID        string    `json:"id" db:"id"`
	PaymentID string    `json:"payment_id" db:"payment_id"`
	OrderID   string    `json:"order_id" db:"order_id"`
	Amount    float64   `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
