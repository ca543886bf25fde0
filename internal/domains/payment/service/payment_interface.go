package service

import (
	"context"

	"vnpay-broker/internal/domains/payment/gateway"
	"vnpay-broker/internal/domains/payment/model"
)

// =====================================================
// PAYMENT SERVICE INTERFACE
// =====================================================
type PaymentService interface {
	// ============================================
	// USER ENDPOINTS
	// ============================================

	// CreatePayment signs a VNPay URL and remembers where the browser
	// should land once VNPay returns
	CreatePayment(ctx context.Context, req model.CreatePaymentRequest) (*model.CreatePaymentResponse, error)

	// HandleReturn verifies the browser return and resolves the redirect
	HandleReturn(ctx context.Context, params map[string]string) (*model.ReturnResult, error)

	// ============================================
	// WEBHOOK PROCESSING
	// ============================================

	// HandleIPN verifies a server-to-server notification and always
	// returns the acknowledgement VNPay expects
	HandleIPN(ctx context.Context, params map[string]string) *model.IPNResponse

	// ============================================
	// OPERATOR TOOLS
	// ============================================

	// DebugSignature signs params in both modes for comparison
	DebugSignature(ctx context.Context, req model.DebugSignatureRequest) (*gateway.VNPaySignatureReport, error)
}
