package vnpay

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Params is a VNPay parameter set. Keys are unique by construction.
type Params map[string]string

// Get returns the value for key or "" when absent.
func (p Params) Get(key string) string {
	if p == nil {
		return ""
	}
	return p[key]
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Without returns a copy of p minus the given keys.
func (p Params) Without(keys ...string) Params {
	out := p.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// ParamsFrom coerces arbitrary scalar values to their string form.
// nil values are treated as absent.
func ParamsFrom(values map[string]any) Params {
	out := make(Params, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			// Non-scalar value is a caller error; sign its printed form.
			s = fmt.Sprint(v)
		}
		out[k] = s
	}
	return out
}

// ParamsFromValues extracts vnp_* parameters from a decoded query string.
// Only the first value of a repeated key is kept.
func ParamsFromValues(values url.Values) Params {
	out := make(Params, len(values))
	for key, vals := range values {
		if !strings.HasPrefix(key, "vnp_") || len(vals) == 0 {
			continue
		}
		out[key] = vals[0]
	}
	return out
}

// =====================================================
// TYPED CREATE-PATH PARAMETERS
// =====================================================

// PaymentParams lists every field that takes part in a pay request.
// Optional fields are emitted only when set.
type PaymentParams struct {
	Version    string
	Command    string
	TmnCode    string
	Amount     int64 // VND x 100
	CurrCode   string
	TxnRef     string
	OrderInfo  string
	OrderType  string
	Locale     string
	ReturnURL  string
	IPAddr     string
	CreateDate string // yyyyMMddHHmmss, GMT+7
	ExpireDate string
	BankCode   string
	IPNURL     string
}

// Params flattens the record into a parameter set.
func (p PaymentParams) Params() Params {
	out := Params{
		"vnp_Version":    p.Version,
		"vnp_Command":    p.Command,
		"vnp_TmnCode":    p.TmnCode,
		"vnp_Amount":     strconv.FormatInt(p.Amount, 10),
		"vnp_CurrCode":   p.CurrCode,
		"vnp_TxnRef":     p.TxnRef,
		"vnp_OrderInfo":  p.OrderInfo,
		"vnp_OrderType":  p.OrderType,
		"vnp_Locale":     p.Locale,
		"vnp_ReturnUrl":  p.ReturnURL,
		"vnp_IpAddr":     p.IPAddr,
		"vnp_CreateDate": p.CreateDate,
	}
	if p.ExpireDate != "" {
		out["vnp_ExpireDate"] = p.ExpireDate
	}
	if p.BankCode != "" {
		out["vnp_BankCode"] = p.BankCode
	}
	if p.IPNURL != "" {
		out["vnp_IpnUrl"] = p.IPNURL
	}
	return out
}
