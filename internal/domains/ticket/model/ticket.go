package model

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// =====================================================
// KINDS
// =====================================================
const (
	KindTicket  = "ticket"
	KindBooking = "booking"
)

// MaxPayloadLength bounds the ?data= parameter before decoding
const MaxPayloadLength = 8 * 1024

var (
	ErrEmptyPayload   = errors.New("ticket payload is empty")
	ErrInvalidPayload = errors.New("ticket payload is not valid base64 or JSON")
	ErrPayloadTooLong = errors.New("ticket payload is too long")
)

// Ticket is the JSON object carried inside a QR code
type Ticket struct {
	Code     string          `json:"code"`
	Event    string          `json:"event"`
	Holder   string          `json:"holder"`
	Seat     string          `json:"seat"`
	Showtime string          `json:"showtime"`
	Venue    string          `json:"venue"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	Kind     string          `json:"kind"`
}

func (t Ticket) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Code, validation.Required, validation.Length(1, 128)),
		validation.Field(&t.Quantity, validation.Min(0)),
		validation.Field(&t.Kind, validation.In(KindTicket, KindBooking)),
	)
}

// Title is the page heading for the ticket kind
func (t Ticket) Title() string {
	if t.Kind == KindBooking {
		return "Xác nhận đặt chỗ"
	}
	return "Vé điện tử"
}

// AmountLabel formats the amount in VND, empty when unset
func (t Ticket) AmountLabel() string {
	if t.Amount.IsZero() {
		return ""
	}
	return t.Amount.StringFixed(0) + " VND"
}

// Normalize trims whitespace and lower-cases the kind
func (t *Ticket) Normalize() {
	t.Code = strings.TrimSpace(t.Code)
	t.Event = strings.TrimSpace(t.Event)
	t.Holder = strings.TrimSpace(t.Holder)
	t.Seat = strings.TrimSpace(t.Seat)
	t.Showtime = strings.TrimSpace(t.Showtime)
	t.Venue = strings.TrimSpace(t.Venue)
	t.Kind = strings.ToLower(strings.TrimSpace(t.Kind))
}
