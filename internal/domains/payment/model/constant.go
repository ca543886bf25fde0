package model

import "time"

// =====================================================
// PAYMENT STATUS
// =====================================================
const (
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
	PaymentStatusInvalid = "invalid"
)

// =====================================================
// CALLBACK TARGET DEFAULTS
// =====================================================
const (
	DefaultCallbackTTL    = 30 * time.Minute
	DefaultMaxCallbacks   = 10000
	CallbackKeyPrefix     = "vnpay:callback:"
	MaxOrderInfoLength    = 255
	MaxTxnRefLength       = 100
	MinPaymentAmountVND   = 5000
	MaxPaymentAmountVND   = 1000000000
	DefaultOrderInfoLabel = "Thanh toan don hang"
)

// =====================================================
// IPN ACKNOWLEDGEMENT (RspCode expected by VNPay)
// =====================================================
const (
	IPNConfirmSuccess   = "00"
	IPNOrderNotFound    = "01"
	IPNAlreadyConfirmed = "02"
	IPNInvalidAmount    = "04"
	IPNInvalidSignature = "97"
	IPNUnknownError     = "99"
)

var ipnMessages = map[string]string{
	IPNConfirmSuccess:   "Confirm Success",
	IPNOrderNotFound:    "Order not found",
	IPNAlreadyConfirmed: "Order already confirmed",
	IPNInvalidAmount:    "Invalid amount",
	IPNInvalidSignature: "Invalid signature",
	IPNUnknownError:     "Unknown error",
}

// NewIPNResponse builds the acknowledgement body for rspCode
func NewIPNResponse(rspCode string) *IPNResponse {
	msg, ok := ipnMessages[rspCode]
	if !ok {
		rspCode, msg = IPNUnknownError, ipnMessages[IPNUnknownError]
	}
	return &IPNResponse{RspCode: rspCode, Message: msg}
}

// =====================================================
// INTERNAL ERROR CODES
// =====================================================
const (
	ErrCodeInvalidRequest         = "PAY001"
	ErrCodeDuplicateTxnRef        = "PAY002"
	ErrCodeInvalidSignature       = "PAY012"
	ErrCodeCallbackStoreFailed    = "PAY014"
	ErrCodeGatewayUnavailable     = "PAY016"
	ErrCodeInvalidCallbackPayload = "PAY017"
	ErrCodeInternalError          = "PAY024"
)
