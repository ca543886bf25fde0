package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CallbackTarget remembers where to send the browser once VNPay returns
// for a given transaction reference.
type CallbackTarget struct {
	TxnRef      string          `json:"txn_ref"`
	RedirectURL string          `json:"redirect_url"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`

	// Set on the first verified browser return; the entry stays for the IPN
	ReturnedAt *time.Time `json:"returned_at,omitempty"`

	// Set once a verified IPN has been acknowledged for this txn ref
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedCode string     `json:"confirmed_code,omitempty"`
}

// IsExpired reports whether the target is past its expiry at now.
func (t *CallbackTarget) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// IsConfirmed reports whether an IPN was already accepted for the target.
func (t *CallbackTarget) IsConfirmed() bool {
	return t.ConfirmedAt != nil
}
