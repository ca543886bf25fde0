package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"vnpay-broker/internal/domains/payment/gateway"
)

// =====================================================
// MOCK VNPAY GATEWAY FOR TESTING
// =====================================================

// MockVNPayGateway accepts a callback iff its vnp_SecureHash equals ValidHash.
type MockVNPayGateway struct {
	mu sync.Mutex

	returnURL         string
	ValidHash         string
	ShouldFailPayment bool

	Requests []gateway.VNPayPaymentRequest
}

func NewMockVNPayGateway(returnURL string) *MockVNPayGateway {
	return &MockVNPayGateway{
		returnURL: returnURL,
		ValidHash: "valid-hash",
	}
}

var _ gateway.VNPayGateway = (*MockVNPayGateway)(nil)

func (m *MockVNPayGateway) CreatePaymentURL(
	ctx context.Context,
	req gateway.VNPayPaymentRequest,
) (*gateway.VNPayPaymentURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ShouldFailPayment {
		return nil, fmt.Errorf("mock payment creation failed")
	}
	m.Requests = append(m.Requests, req)

	now := time.Now()
	return &gateway.VNPayPaymentURL{
		URL: fmt.Sprintf(
			"https://mock-vnpay.com/payment?vnp_TxnRef=%s&vnp_Amount=%s",
			req.TransactionRef,
			req.Amount.StringFixed(0),
		),
		TxnRef:     req.TransactionRef,
		SecureHash: m.ValidHash,
		CreatedAt:  now,
		ExpiresAt:  now.Add(15 * time.Minute),
	}, nil
}

func (m *MockVNPayGateway) VerifyCallback(params map[string]string) (*gateway.VNPayCallbackResult, error) {
	if params["vnp_SecureHash"] == "" || params["vnp_SecureHash"] != m.ValidHash {
		return nil, gateway.ErrInvalidSignature
	}

	amount := decimal.Zero
	if raw := params["vnp_Amount"]; raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid amount: %w", err)
		}
		amount = parsed.Div(decimal.NewFromInt(100))
	}

	code := params["vnp_ResponseCode"]
	return &gateway.VNPayCallbackResult{
		TxnRef:            params["vnp_TxnRef"],
		Amount:            amount,
		ResponseCode:      code,
		TransactionStatus: params["vnp_TransactionStatus"],
		TransactionNo:     params["vnp_TransactionNo"],
		Success:           code == "00",
		Message:           "mock",
	}, nil
}

func (m *MockVNPayGateway) DebugSignature(params map[string]string) *gateway.VNPaySignatureReport {
	return &gateway.VNPaySignatureReport{
		ClaimedHash: params["vnp_SecureHash"],
		Encoded:     gateway.VNPaySignatureVariant{Mode: "encoded", SecureHash: m.ValidHash, Matches: params["vnp_SecureHash"] == m.ValidHash},
		Raw:         gateway.VNPaySignatureVariant{Mode: "raw"},
	}
}

func (m *MockVNPayGateway) GetReturnURL() string {
	return m.returnURL
}
