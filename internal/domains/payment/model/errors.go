package model

import (
	"errors"
	"fmt"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrInvalidSignature       = errors.New("invalid callback signature")
	ErrCallbackTargetNotFound = errors.New("callback target not found")
	ErrCallbackTargetExists   = errors.New("callback target already exists")
	ErrInvalidCallbackPayload = errors.New("invalid callback payload")
)

// =====================================================
// CUSTOM PAYMENT ERROR
// =====================================================

type PaymentError struct {
	Code    string
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewInvalidRequestError(err error) *PaymentError {
	return NewPaymentError(ErrCodeInvalidRequest, "Invalid payment request", err)
}

func NewDuplicateTxnRefError(txnRef string) *PaymentError {
	return NewPaymentError(
		ErrCodeDuplicateTxnRef,
		fmt.Sprintf("Transaction reference %s is already in use", txnRef),
		ErrCallbackTargetExists,
	)
}

func NewInvalidSignatureError() *PaymentError {
	return NewPaymentError(
		ErrCodeInvalidSignature,
		"Invalid callback signature - possible fraud attempt",
		ErrInvalidSignature,
	)
}

func NewInvalidCallbackPayloadError(err error) *PaymentError {
	return NewPaymentError(ErrCodeInvalidCallbackPayload, "Malformed callback payload", errors.Join(ErrInvalidCallbackPayload, err))
}

func NewCallbackStoreError(err error) *PaymentError {
	return NewPaymentError(ErrCodeCallbackStoreFailed, "Callback store unavailable", err)
}

func NewGatewayUnavailableError(err error) *PaymentError {
	return NewPaymentError(ErrCodeGatewayUnavailable, "Payment gateway unavailable", err)
}
