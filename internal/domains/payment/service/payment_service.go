package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vnpay-broker/internal/domains/payment/gateway"
	"vnpay-broker/internal/domains/payment/model"
	repo "vnpay-broker/internal/domains/payment/repository"
	"vnpay-broker/pkg/logger"
)

var (
	errAlreadyConfirmed = errors.New("callback target already confirmed")
	errAmountMismatch   = errors.New("callback amount mismatch")
)

// Options tunes the callback bookkeeping of the service
type Options struct {
	CallbackTTL        time.Duration
	DefaultRedirectURL string
}

// =====================================================
// PAYMENT SERVICE IMPLEMENTATION
// =====================================================
type paymentService struct {
	vnpayGateway  gateway.VNPayGateway
	callbackStore repo.CallbackStore

	callbackTTL        time.Duration
	defaultRedirectURL string
	now                func() time.Time
}

func NewPaymentService(
	vnpayGateway gateway.VNPayGateway,
	callbackStore repo.CallbackStore,
	opts Options,
) PaymentService {
	if opts.CallbackTTL <= 0 {
		opts.CallbackTTL = model.DefaultCallbackTTL
	}
	return &paymentService{
		vnpayGateway:       vnpayGateway,
		callbackStore:      callbackStore,
		callbackTTL:        opts.CallbackTTL,
		defaultRedirectURL: opts.DefaultRedirectURL,
		now:                time.Now,
	}
}

// =====================================================
// CREATE PAYMENT
// =====================================================

// CreatePayment initiates a VNPay payment
//
// Business Logic Flow:
// 1. Normalize + validate request
// 2. Generate txn ref when the caller did not supply one
// 3. Sign the payment URL
// 4. Store the callback target under the txn ref with TTL
//
// Edge Cases:
// - Invalid request -> PAY001
// - Txn ref already in use -> PAY002 (existing target is left as is)
// - Gateway failure -> PAY016
// - Store failure -> PAY014 (no URL is handed out)
func (s *paymentService) CreatePayment(
	ctx context.Context,
	req model.CreatePaymentRequest,
) (*model.CreatePaymentResponse, error) {
	// Step 1: Validate request
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, model.NewInvalidRequestError(err)
	}

	// Step 2: Txn ref
	txnRef := req.TxnRef
	if txnRef == "" {
		txnRef = newTxnRef()
	}
	orderInfo := req.OrderInfo
	if orderInfo == "" {
		orderInfo = fmt.Sprintf("%s %s", model.DefaultOrderInfoLabel, txnRef)
	}
	redirectURL := req.RedirectURL
	if redirectURL == "" {
		redirectURL = s.defaultRedirectURL
	}

	// Step 3: Sign
	paymentURL, err := s.vnpayGateway.CreatePaymentURL(ctx, gateway.VNPayPaymentRequest{
		TransactionRef: txnRef,
		Amount:         req.Amount,
		OrderInfo:      orderInfo,
		BankCode:       req.BankCode,
		Locale:         req.Locale,
	})
	if err != nil {
		logger.Error("Failed to sign VNPay payment URL", err)
		return nil, model.NewGatewayUnavailableError(err)
	}

	// Step 4: Remember the redirect target
	target := &model.CallbackTarget{
		TxnRef:      txnRef,
		RedirectURL: redirectURL,
		Amount:      req.Amount,
		CreatedAt:   s.now(),
	}
	if err := s.callbackStore.Create(ctx, target, s.callbackTTL); err != nil {
		if errors.Is(err, model.ErrCallbackTargetExists) {
			logger.Warn("Rejected duplicate txn ref", map[string]interface{}{
				"txn_ref": txnRef,
			})
			return nil, model.NewDuplicateTxnRefError(txnRef)
		}
		logger.Error("Failed to store callback target", err)
		return nil, model.NewCallbackStoreError(err)
	}

	logger.Info("Payment created", map[string]interface{}{
		"txn_ref": txnRef,
		"amount":  req.Amount.String(),
	})

	return &model.CreatePaymentResponse{
		PaymentURL: paymentURL.URL,
		TxnRef:     txnRef,
		Amount:     req.Amount,
		ExpiresAt:  paymentURL.ExpiresAt,
	}, nil
}

// newTxnRef returns an alphanumeric reference; VNPay rejects dashes.
func newTxnRef() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// =====================================================
// BROWSER RETURN
// =====================================================

// HandleReturn verifies the browser return and marks the callback target as
// returned. The target is kept until its TTL runs out so a later IPN for
// the same txn ref still finds it.
//
// Nothing from the query is trusted until the signature verifies, so an
// unverified return never produces a redirect carrying success data.
func (s *paymentService) HandleReturn(
	ctx context.Context,
	params map[string]string,
) (*model.ReturnResult, error) {
	result, err := s.verify(params)
	if err != nil {
		log.Warn().Err(err).Str("txn_ref", params["vnp_TxnRef"]).Msg("Rejected VNPay return")
		return nil, err
	}

	// A missing target still yields a verified result, just without a redirect
	target, err := s.callbackStore.Update(ctx, result.TxnRef, func(t *model.CallbackTarget) error {
		if t.ReturnedAt == nil {
			now := s.now()
			t.ReturnedAt = &now
		}
		return nil
	})
	switch {
	case errors.Is(err, model.ErrCallbackTargetNotFound):
		target = nil
	case err != nil:
		return nil, model.NewCallbackStoreError(err)
	}

	status := model.PaymentStatusFailed
	switch {
	case !amountMatches(target, result):
		status = model.PaymentStatusInvalid
	case result.Success:
		status = model.PaymentStatusSuccess
	}

	out := &model.ReturnResult{
		TxnRef:       result.TxnRef,
		Status:       status,
		ResponseCode: result.ResponseCode,
		Message:      result.Message,
		Amount:       result.Amount,
	}
	if target != nil {
		out.RedirectURL, err = appendResult(target.RedirectURL, status, result)
		if err != nil {
			return nil, model.NewInvalidCallbackPayloadError(err)
		}
	}

	log.Info().
		Str("txn_ref", result.TxnRef).
		Str("status", status).
		Str("response_code", result.ResponseCode).
		Bool("redirect", out.RedirectURL != "").
		Msg("VNPay return handled")

	return out, nil
}

// appendResult adds the outcome to the stored redirect URL
func appendResult(rawURL, status string, result *gateway.VNPayCallbackResult) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}

	q := u.Query()
	q.Set("status", status)
	q.Set("txnRef", result.TxnRef)
	q.Set("code", result.ResponseCode)
	q.Set("amount", result.Amount.String())
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// =====================================================
// IPN
// =====================================================

// HandleIPN processes a VNPay IPN callback
//
// RspCode:
// - 97 invalid signature
// - 99 malformed input or store failure
// - 01 unknown txn ref
// - 02 already confirmed
// - 04 amount mismatch
// - 00 confirmed
func (s *paymentService) HandleIPN(ctx context.Context, params map[string]string) *model.IPNResponse {
	rsp := s.handleIPN(ctx, params)

	log.Info().
		Str("txn_ref", params["vnp_TxnRef"]).
		Str("response_code", params["vnp_ResponseCode"]).
		Str("rsp_code", rsp.RspCode).
		Msg("VNPay IPN acknowledged")

	return rsp
}

func (s *paymentService) handleIPN(ctx context.Context, params map[string]string) *model.IPNResponse {
	result, err := s.verify(params)
	if err != nil {
		if errors.Is(err, model.ErrInvalidSignature) {
			return model.NewIPNResponse(model.IPNInvalidSignature)
		}
		return model.NewIPNResponse(model.IPNUnknownError)
	}

	// Confirmation is a single compare-and-set so concurrent IPNs for one
	// txn ref cannot both be acknowledged with 00
	_, err = s.callbackStore.Update(ctx, result.TxnRef, func(t *model.CallbackTarget) error {
		if t.IsConfirmed() {
			return errAlreadyConfirmed
		}
		if !amountMatches(t, result) {
			return errAmountMismatch
		}
		now := s.now()
		t.ConfirmedAt = &now
		t.ConfirmedCode = result.ResponseCode
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, model.ErrCallbackTargetNotFound):
		return model.NewIPNResponse(model.IPNOrderNotFound)
	case errors.Is(err, errAlreadyConfirmed):
		return model.NewIPNResponse(model.IPNAlreadyConfirmed)
	case errors.Is(err, errAmountMismatch):
		return model.NewIPNResponse(model.IPNInvalidAmount)
	default:
		logger.Error("Failed to confirm callback target", err)
		return model.NewIPNResponse(model.IPNUnknownError)
	}

	return model.NewIPNResponse(model.IPNConfirmSuccess)
}

// =====================================================
// DEBUG SIGNATURE
// =====================================================

func (s *paymentService) DebugSignature(
	ctx context.Context,
	req model.DebugSignatureRequest,
) (*gateway.VNPaySignatureReport, error) {
	params, err := req.ToParams()
	if err != nil {
		return nil, model.NewInvalidRequestError(err)
	}
	return s.vnpayGateway.DebugSignature(params), nil
}

// =====================================================
// HELPERS
// =====================================================

// verify maps gateway failures to payment errors
func (s *paymentService) verify(params map[string]string) (*gateway.VNPayCallbackResult, error) {
	if len(params) == 0 {
		return nil, model.NewInvalidCallbackPayloadError(errors.New("no vnp_* parameters"))
	}
	if params["vnp_SecureHash"] == "" {
		return nil, model.NewInvalidSignatureError()
	}

	result, err := s.vnpayGateway.VerifyCallback(params)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			return nil, model.NewInvalidSignatureError()
		}
		return nil, model.NewInvalidCallbackPayloadError(err)
	}
	if result.TxnRef == "" {
		return nil, model.NewInvalidCallbackPayloadError(errors.New("missing vnp_TxnRef"))
	}
	return result, nil
}

// amountMatches compares the callback amount with what was requested.
// Missing targets and targets without an amount accept any value.
func amountMatches(target *model.CallbackTarget, result *gateway.VNPayCallbackResult) bool {
	if target == nil || target.Amount.IsZero() {
		return true
	}
	return target.Amount.Equal(result.Amount)
}
