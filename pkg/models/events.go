package models

import (
	"encoding/json"
	"time"
)

// Inbound event payloads. Every payload names the Avoqado venue it belongs to; the
// dispatcher refuses events whose venue does not exist in the central store.

// OrderEvent is the payload of pos.<vendor>.order.* events.
type OrderEvent struct {
	VenueID          string             `json:"venueId" validate:"required"`
	ExternalID       string             `json:"externalId" validate:"required"`
	OrderNumber      string             `json:"orderNumber"`
	Status           string             `json:"status"`
	PaymentStatus    OrderPaymentStatus `json:"paymentStatus"`
	Subtotal         float64            `json:"subtotal"`
	TaxAmount        float64            `json:"taxAmount"`
	DiscountAmount   float64            `json:"discountAmount"`
	TipAmount        float64            `json:"tipAmount"`
	Total            float64            `json:"total"`
	CreatedAt        time.Time          `json:"createdAt"`
	CompletedAt      *time.Time         `json:"completedAt,omitempty"`
	RawVendorPayload json.RawMessage    `json:"rawVendorPayload,omitempty"`

	StaffRef *StaffEvent `json:"staffRef,omitempty"`
	TableRef *TableEvent `json:"tableRef,omitempty"`
	ShiftRef *ShiftEvent `json:"shiftRef,omitempty"`

	SettlementLines      []SettlementLine     `json:"settlementLines,omitempty"`
	PaymentMethodCatalog []PaymentMethodEntry `json:"paymentMethodCatalog,omitempty"`
}

// SettlementLine is one payment method's contribution to fully paying an order.
type SettlementLine struct {
	MethodID  string  `json:"methodId" validate:"required"`
	Amount    float64 `json:"amount"`
	TipAmount float64 `json:"tipAmount"`
}

// PaymentMethodEntry is one row of the terminal's payment-method catalog, sent along
// with settlement lines so method ids are never hard-coded on the central side.
type PaymentMethodEntry struct {
	MethodID    string `json:"methodId"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// OrderItemEvent is the payload of pos.<vendor>.orderitem.* events. Item events are
// independent of order events and reference their parent by external id.
type OrderItemEvent struct {
	VenueID               string          `json:"venueId" validate:"required"`
	ParentOrderExternalID string          `json:"parentOrderExternalId" validate:"required"`
	ExternalID            string          `json:"externalId" validate:"required"`
	Deleted               bool            `json:"deleted"`
	ProductExternalID     *string         `json:"productExternalId,omitempty"`
	ProductName           string          `json:"productName"`
	Quantity              float64         `json:"quantity"`
	UnitPrice             float64         `json:"unitPrice"`
	DiscountAmount        float64         `json:"discountAmount"`
	TaxAmount             float64         `json:"taxAmount"`
	Total                 float64         `json:"total"`
	Notes                 string          `json:"notes"`
	Sequence              int             `json:"sequence"`
	RawVendorPayload      json.RawMessage `json:"rawVendorPayload,omitempty"`
}

// ShiftEvent is the payload of pos.<vendor>.shift.* events, and also the embedded
// shift reference on order events.
type ShiftEvent struct {
	VenueID         string          `json:"venueId"`
	ExternalID      string          `json:"externalId" validate:"required"`
	StartTime       *time.Time      `json:"startTime,omitempty"`
	EndTime         *time.Time      `json:"endTime,omitempty"`
	StartingCash    *float64        `json:"startingCash,omitempty"`
	EndingCash      float64         `json:"endingCash"`
	StaffRef        *StaffEvent     `json:"staffRef,omitempty"`
	RawVendorFields json.RawMessage `json:"rawVendorFields,omitempty"`
}

// StaffEvent is the payload of pos.<vendor>.staff.* events, and also the embedded
// staff reference on order and shift events. ExternalID is the terminal-local staff
// code, unique per venue only.
type StaffEvent struct {
	VenueID    string `json:"venueId"`
	ExternalID string `json:"externalId" validate:"required"`
	Name       string `json:"name"`
	PIN        string `json:"pin"`
}

// TableEvent is the payload of pos.<vendor>.table.* events and embedded table refs.
type TableEvent struct {
	VenueID    string     `json:"venueId"`
	ExternalID string     `json:"externalId" validate:"required"`
	Name       string     `json:"name"`
	AreaRef    *AreaEvent `json:"areaRef,omitempty"`
}

// AreaEvent is the payload of pos.<vendor>.area.* events.
type AreaEvent struct {
	VenueID    string `json:"venueId"`
	ExternalID string `json:"externalId" validate:"required"`
	Name       string `json:"name"`
}

// HeartbeatEvent is the payload of pos.<vendor>.heartbeat events.
type HeartbeatEvent struct {
	VenueID         string `json:"venueId" validate:"required"`
	InstanceID      string `json:"instanceId" validate:"required"`
	ProducerVersion string `json:"producerVersion"`
}

// ConfigurationErrorCommand is published back toward a terminal whose configured
// venue id does not exist centrally. Routing key: command.<vendor>.configuration.error.
type ConfigurationErrorCommand struct {
	ErrorType               string `json:"errorType"`
	InvalidVenueID          string `json:"invalidVenueId"`
	InstanceID              string `json:"instanceId"`
	Message                 string `json:"message"`
	RequiresReconfiguration bool   `json:"requiresReconfiguration"`
}

// ErrorTypeVenueNotFound is the machine-readable code carried on configuration-error
// commands for unknown venue ids.
const ErrorTypeVenueNotFound = "VENUE_NOT_FOUND"
