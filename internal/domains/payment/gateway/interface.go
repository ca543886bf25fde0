package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidSignature = errors.New("invalid vnpay signature")

// =====================================================
// GATEWAY INTERFACES
// =====================================================

// VNPayGateway interface for VNPay payment gateway integration
type VNPayGateway interface {
	// CreatePaymentURL generates a signed VNPay payment URL
	CreatePaymentURL(ctx context.Context, req VNPayPaymentRequest) (*VNPayPaymentURL, error)

	// VerifyCallback verifies a return/IPN parameter set and decodes it.
	// Returns ErrInvalidSignature when the secure hash does not match.
	VerifyCallback(params map[string]string) (*VNPayCallbackResult, error)

	// DebugSignature computes the hash in both signing modes for comparison
	DebugSignature(params map[string]string) *VNPaySignatureReport

	// GetReturnURL gets the browser return URL
	GetReturnURL() string
}

// =====================================================
// REQUEST/RESPONSE TYPES
// =====================================================

// VNPayPaymentRequest request to create VNPay payment
type VNPayPaymentRequest struct {
	TransactionRef string          // vnp_TxnRef, unique per attempt
	Amount         decimal.Decimal // Order total in VND
	OrderInfo      string          // Description
	ReturnURL      string          // Overrides config return URL when set
	BankCode       string          // Optional bank preselection
	Locale         string          // vn | en, config default when empty
}

// VNPayPaymentURL is the signed redirect target
type VNPayPaymentURL struct {
	URL        string
	TxnRef     string
	SecureHash string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// VNPayCallbackResult is a verified return/IPN payload
type VNPayCallbackResult struct {
	TxnRef            string
	Amount            decimal.Decimal
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
	BankTranNo        string
	CardType          string
	PayDate           string
	OrderInfo         string
	TmnCode           string
	Success           bool
	Message           string
}

// VNPaySignatureVariant is the hash computed in one signing mode
type VNPaySignatureVariant struct {
	Mode       string `json:"mode"`
	Signable   string `json:"signable"`
	Query      string `json:"query"`
	SecureHash string `json:"secure_hash"`
	Matches    bool   `json:"matches"`
}

// VNPaySignatureReport compares encoded and raw signing for one parameter set
type VNPaySignatureReport struct {
	ClaimedHash string                `json:"claimed_hash,omitempty"`
	Encoded     VNPaySignatureVariant `json:"encoded"`
	Raw         VNPaySignatureVariant `json:"raw"`
}
