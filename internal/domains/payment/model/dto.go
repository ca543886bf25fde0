package model

import (
	"errors"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
)

// =====================================================
// CREATE PAYMENT REQUEST/RESPONSE
// =====================================================

type CreatePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	TxnRef      string          `json:"txn_ref,omitempty"`
	OrderInfo   string          `json:"order_info,omitempty"`
	BankCode    string          `json:"bank_code,omitempty"`
	Locale      string          `json:"locale,omitempty"`
	RedirectURL string          `json:"redirect_url,omitempty"` // where the browser lands after return
}

// Validate validates CreatePaymentRequest
func (r CreatePaymentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, validation.By(validateAmount)),
		validation.Field(&r.TxnRef, validation.Length(1, MaxTxnRefLength), is.Alphanumeric.Error("must contain only letters and digits")),
		validation.Field(&r.OrderInfo, validation.Length(0, MaxOrderInfoLength), is.PrintableASCII.Error("must be ASCII without accents")),
		validation.Field(&r.BankCode, validation.Length(0, 20), is.Alphanumeric),
		validation.Field(&r.Locale, validation.In("vn", "en")),
		validation.Field(&r.RedirectURL, is.RequestURL),
	)
}

func validateAmount(value interface{}) error {
	amount, _ := value.(decimal.Decimal)
	if amount.LessThan(decimal.NewFromInt(MinPaymentAmountVND)) {
		return validation.NewError("validation_amount_min", "must be at least 5000 VND")
	}
	if amount.GreaterThanOrEqual(decimal.NewFromInt(MaxPaymentAmountVND)) {
		return validation.NewError("validation_amount_max", "must be less than 1,000,000,000 VND")
	}
	return nil
}

// Normalize trims whitespace and fills defaults
func (r *CreatePaymentRequest) Normalize() {
	r.TxnRef = strings.TrimSpace(r.TxnRef)
	r.OrderInfo = strings.TrimSpace(r.OrderInfo)
	r.BankCode = strings.ToUpper(strings.TrimSpace(r.BankCode))
	r.Locale = strings.ToLower(strings.TrimSpace(r.Locale))
	r.RedirectURL = strings.TrimSpace(r.RedirectURL)
}

type CreatePaymentResponse struct {
	PaymentURL string          `json:"payment_url"`
	TxnRef     string          `json:"txn_ref"`
	Amount     decimal.Decimal `json:"amount"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// =====================================================
// RETURN / IPN
// =====================================================

// ReturnResult is what the browser return path resolves to
type ReturnResult struct {
	TxnRef       string          `json:"txn_ref"`
	Status       string          `json:"status"`
	ResponseCode string          `json:"response_code"`
	Message      string          `json:"message"`
	Amount       decimal.Decimal `json:"amount"`
	RedirectURL  string          `json:"redirect_url,omitempty"`
}

// IPNResponse is the acknowledgement body VNPay expects
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// =====================================================
// DEBUG
// =====================================================

// DebugSignatureRequest carries either a parameter map or a raw query
// string copied from a VNPay URL. Params wins when both are set.
type DebugSignatureRequest struct {
	Params map[string]string `json:"params"`
	Query  string            `json:"query"`
}

// ToParams resolves the request into a flat parameter map
func (r DebugSignatureRequest) ToParams() (map[string]string, error) {
	if len(r.Params) > 0 {
		return r.Params, nil
	}

	query := strings.TrimSpace(r.Query)
	if i := strings.IndexByte(query, '?'); i >= 0 {
		query = query[i+1:]
	}
	if query == "" {
		return nil, errors.New("params or query is required")
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	params := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}
	return params, nil
}
