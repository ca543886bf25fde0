package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// =====================================================
// VNPAY SIGNATURE CODEC
// =====================================================

const (
	ParamSecureHash     = "vnp_SecureHash"
	ParamSecureHashType = "vnp_SecureHashType"

	// SecureHashTypeHMACSHA512 is the only algorithm VNPay 2.1.0 accepts
	SecureHashTypeHMACSHA512 = "HMACSHA512"
)

// ExcludedKeys describe the signature itself and are never signed.
var ExcludedKeys = [...]string{ParamSecureHash, ParamSecureHashType}

// Mode selects how values are rendered in the signable string.
type Mode int

const (
	// ModeEncoded signs percent-encoded values; the signed string doubles as the query.
	ModeEncoded Mode = iota
	// ModeRaw signs plain values and encodes them only for the outgoing URL.
	ModeRaw
)

func (m Mode) String() string {
	switch m {
	case ModeEncoded:
		return "encoded"
	case ModeRaw:
		return "raw"
	default:
		return "unknown"
	}
}

var ErrEmptySecret = errors.New("vnpay: hash secret is required")

// Codec builds and verifies VNPay secure hashes. It holds no mutable state
// and is safe for concurrent use.
type Codec struct {
	secret      []byte
	spaceAsPlus bool
}

// NewCodec creates a codec keyed by secret. spaceAsPlus renders encoded
// spaces as '+' instead of %20, in both the signed string and the query.
func NewCodec(secret string, spaceAsPlus bool) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Codec{secret: []byte(secret), spaceAsPlus: spaceAsPlus}, nil
}

// QueryResult is the outcome of BuildQuery.
type QueryResult struct {
	Query      string
	SecureHash string
	Signable   string
}

// EncodeSignable returns the canonical string that gets hashed:
// excluded keys dropped, keys in byte order, "key=value" joined by '&'.
func (c *Codec) EncodeSignable(params Params, mode Mode) string {
	keys := signableKeys(params)
	if mode == ModeRaw {
		return joinPairs(keys, params, func(v string) string { return v })
	}
	return joinPairs(keys, params, c.escape)
}

// Sign returns the lowercase hex HMAC-SHA512 of signable.
func (c *Codec) Sign(signable string) string {
	mac := hmac.New(sha512.New, c.secret)
	mac.Write([]byte(signable))
	return hex.EncodeToString(mac.Sum(nil))
}

// BuildQuery signs params and returns the query string to append to the
// gateway URL. The output depends only on params, mode and the codec.
func (c *Codec) BuildQuery(params Params, mode Mode, includeTypeSuffix bool) QueryResult {
	keys := signableKeys(params)

	var signable, base string
	if mode == ModeRaw {
		signable = joinPairs(keys, params, func(v string) string { return v })
		base = joinPairs(keys, params, c.escape)
	} else {
		signable = joinPairs(keys, params, c.escape)
		base = signable
	}

	secureHash := c.Sign(signable)

	var b strings.Builder
	b.Grow(len(base) + len(secureHash) + 64)
	b.WriteString(base)
	if base != "" {
		b.WriteByte('&')
	}
	b.WriteString(ParamSecureHash)
	b.WriteByte('=')
	b.WriteString(secureHash)
	if includeTypeSuffix {
		b.WriteString("&" + ParamSecureHashType + "=" + SecureHashTypeHMACSHA512)
	}

	return QueryResult{
		Query:      b.String(),
		SecureHash: secureHash,
		Signable:   signable,
	}
}

// Verify recomputes the hash over params and compares it to claimedHash,
// ignoring hex letter case. Empty params or an empty claim never verify.
// params is not modified.
func (c *Codec) Verify(params Params, claimedHash string, mode Mode) bool {
	claimedHash = strings.TrimSpace(claimedHash)
	if claimedHash == "" || len(params) == 0 {
		return false
	}
	if len(signableKeys(params)) == 0 {
		return false
	}

	expected := c.Sign(c.EncodeSignable(params, mode))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(claimedHash)))
}

// VerifyParams verifies params against the vnp_SecureHash they carry.
func (c *Codec) VerifyParams(params Params, mode Mode) bool {
	return c.Verify(params, params.Get(ParamSecureHash), mode)
}

func (c *Codec) escape(v string) string {
	encoded := EncodeURIComponent(v)
	if c.spaceAsPlus {
		encoded = strings.ReplaceAll(encoded, "%20", "+")
	}
	return encoded
}

func signableKeys(params Params) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if isExcluded(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isExcluded(key string) bool {
	for _, k := range ExcludedKeys {
		if key == k {
			return true
		}
	}
	return false
}

func joinPairs(keys []string, params Params, render func(string) string) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(render(params[k]))
	}
	return b.String()
}

// EncodeURIComponent percent-encodes s the way browsers' encodeURIComponent
// does: A-Z a-z 0-9 and - _ . ! ~ * ' ( ) pass through, every other UTF-8
// byte becomes %XX with uppercase hex.
//
// url.QueryEscape differs on space ('+') and on ! ' ( ) * ~, which would
// change the signed bytes.
func EncodeURIComponent(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isUnreservedComponent(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	const upperhex = "0123456789ABCDEF"
	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isUnreservedComponent(ch) {
			buf = append(buf, ch)
			continue
		}
		buf = append(buf, '%', upperhex[ch>>4], upperhex[ch&0x0F])
	}
	return string(buf)
}

func isUnreservedComponent(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	switch ch {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
