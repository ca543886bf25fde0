package repository

import (
	"context"
	"time"

	"vnpay-broker/internal/domains/payment/model"
)

// =====================================================
// CALLBACK TARGET STORE INTERFACE
// =====================================================

// CallbackStore maps a transaction reference to the place the browser
// should land after the VNPay return. Entries expire after their TTL.
type CallbackStore interface {
	// Create stores target under target.TxnRef only if no live entry
	// exists; otherwise it returns model.ErrCallbackTargetExists
	Create(ctx context.Context, target *model.CallbackTarget, ttl time.Duration) error

	// Get returns the live entry for txnRef or model.ErrCallbackTargetNotFound
	Get(ctx context.Context, txnRef string) (*model.CallbackTarget, error)

	// Update applies fn to the live entry atomically and keeps its expiry.
	// An error from fn leaves the entry untouched and is returned as is.
	// Missing entries yield model.ErrCallbackTargetNotFound.
	Update(ctx context.Context, txnRef string, fn func(*model.CallbackTarget) error) (*model.CallbackTarget, error)
}
