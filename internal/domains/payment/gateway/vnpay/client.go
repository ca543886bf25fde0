package vnpay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"vnpay-broker/internal/domains/payment/gateway"
	"vnpay-broker/internal/shared/utils"
)

// =====================================================
// VNPAY CLIENT
// =====================================================

type Client struct {
	config *Config
	codec  *Codec
	now    func() time.Time
}

// Option customizes a Client
type Option func(*Client)

// WithClock overrides time.Now; create/expire dates are derived from it.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(config *Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid VNPay config: %w", err)
	}

	codec, err := NewCodec(config.HashSecret, config.SpaceAsPlus)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		codec:  codec,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ gateway.VNPayGateway = (*Client)(nil)

// Codec exposes the signer used by this client
func (c *Client) Codec() *Codec {
	return c.codec
}

// =====================================================
// CREATE PAYMENT URL
// =====================================================

func (c *Client) CreatePaymentURL(
	ctx context.Context,
	req gateway.VNPayPaymentRequest,
) (*gateway.VNPayPaymentURL, error) {
	if req.TransactionRef == "" {
		return nil, fmt.Errorf("transaction_ref is required")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be positive")
	}

	// VNPay dùng IP cho fraud detection, middleware đã gắn vào context
	clientIP := utils.ClientIPFromContext(ctx)
	if clientIP == "" || clientIP == "::1" {
		clientIP = "127.0.0.1"
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = c.config.ReturnURL
	}
	locale := req.Locale
	if locale == "" {
		locale = c.config.Locale
	}

	createdAt := c.now()
	expiresAt := createdAt.Add(c.config.ExpireAfter)

	record := PaymentParams{
		Version:    c.config.Version,
		Command:    c.config.Command,
		TmnCode:    c.config.TmnCode,
		Amount:     FormatAmount(req.Amount),
		CurrCode:   c.config.CurrCode,
		TxnRef:     req.TransactionRef,
		OrderInfo:  req.OrderInfo,
		OrderType:  c.config.OrderType,
		Locale:     locale,
		ReturnURL:  returnURL,
		IPAddr:     clientIP,
		CreateDate: FormatDate(createdAt),
		BankCode:   req.BankCode,
	}
	if c.config.ExpireAfter > 0 {
		record.ExpireDate = FormatDate(expiresAt)
	}
	if c.config.SendIPNURL {
		record.IPNURL = c.config.IPNURL
	}

	result := c.codec.BuildQuery(record.Params(), ModeEncoded, c.config.IncludeHashType)

	log.Debug().
		Str("txn_ref", req.TransactionRef).
		Str("signable", result.Signable).
		Msg("VNPay payment URL signed")

	return &gateway.VNPayPaymentURL{
		URL:        c.config.GetPaymentURL() + "?" + result.Query,
		TxnRef:     req.TransactionRef,
		SecureHash: result.SecureHash,
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// =====================================================
// VERIFY CALLBACK
// =====================================================

// VerifyCallback checks the secure hash of a return/IPN payload. Nothing in
// the payload is decoded until the signature has been accepted.
func (c *Client) VerifyCallback(raw map[string]string) (*gateway.VNPayCallbackResult, error) {
	params := Params(raw)
	if !c.codec.VerifyParams(params, ModeEncoded) {
		return nil, gateway.ErrInvalidSignature
	}

	amount, err := ParseAmount(params.Get("vnp_Amount"))
	if err != nil {
		return nil, err
	}

	responseCode := params.Get("vnp_ResponseCode")
	txnStatus := params.Get("vnp_TransactionStatus")

	// vnp_TransactionStatus chỉ có ở IPN/return bản mới, thiếu thì chỉ xét ResponseCode
	success := responseCode == ResponseCodeSuccess &&
		(txnStatus == "" || txnStatus == TransactionStatusSuccess)

	return &gateway.VNPayCallbackResult{
		TxnRef:            params.Get("vnp_TxnRef"),
		Amount:            amount,
		ResponseCode:      responseCode,
		TransactionStatus: txnStatus,
		TransactionNo:     params.Get("vnp_TransactionNo"),
		BankCode:          params.Get("vnp_BankCode"),
		BankTranNo:        params.Get("vnp_BankTranNo"),
		CardType:          params.Get("vnp_CardType"),
		PayDate:           params.Get("vnp_PayDate"),
		OrderInfo:         params.Get("vnp_OrderInfo"),
		TmnCode:           params.Get("vnp_TmnCode"),
		Success:           success,
		Message:           GetResponseMessage(responseCode),
	}, nil
}

// =====================================================
// DEBUG SIGNATURE
// =====================================================

// DebugSignature signs params in both modes so an operator can see which
// convention the claimed vnp_SecureHash (if any) was produced with.
func (c *Client) DebugSignature(raw map[string]string) *gateway.VNPaySignatureReport {
	params := Params(raw)
	claimed := params.Get(ParamSecureHash)

	variant := func(mode Mode) gateway.VNPaySignatureVariant {
		result := c.codec.BuildQuery(params, mode, c.config.IncludeHashType)
		return gateway.VNPaySignatureVariant{
			Mode:       mode.String(),
			Signable:   result.Signable,
			Query:      result.Query,
			SecureHash: result.SecureHash,
			Matches:    c.codec.Verify(params, claimed, mode),
		}
	}

	return &gateway.VNPaySignatureReport{
		ClaimedHash: claimed,
		Encoded:     variant(ModeEncoded),
		Raw:         variant(ModeRaw),
	}
}

func (c *Client) GetReturnURL() string {
	return c.config.ReturnURL
}
