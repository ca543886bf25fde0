package vnpay

import (
	"fmt"
	"strings"
	"time"
)

// =====================================================
// VNPAY CONFIGURATION
// =====================================================

type Config struct {
	TmnCode    string // Merchant code (provided by VNPay)
	HashSecret string // Secret key for HMAC-SHA512 signature
	APIUrl     string // VNPay payment gateway URL
	ReturnURL  string // Browser return URL (our /payments/vnpay/return)
	IPNURL     string // Backend webhook URL
	Version    string // VNPay API version (default: "2.1.0")
	Command    string // Command type (default: "pay")
	CurrCode   string // Currency code (default: "VND")
	Locale     string // Language (default: "vn")
	OrderType  string // other, billpayment, topup

	SpaceAsPlus     bool          // render encoded spaces as '+'
	IncludeHashType bool          // append vnp_SecureHashType=HMACSHA512
	SendIPNURL      bool          // sandbox rejects tunnel/localhost IPN URLs
	ExpireAfter     time.Duration // vnp_ExpireDate = create date + ExpireAfter
}

// NewConfig creates VNPay configuration
func NewConfig(tmnCode, hashSecret, apiURL, returnURL, ipnURL string) *Config {
	return &Config{
		TmnCode:     tmnCode,
		HashSecret:  hashSecret,
		APIUrl:      apiURL,
		ReturnURL:   returnURL,
		IPNURL:      ipnURL,
		Version:     "2.1.0",
		Command:     "pay",
		CurrCode:    "VND",
		Locale:      "vn",
		OrderType:   "other",
		ExpireAfter: 15 * time.Minute,
	}
}

// Validate validates configuration
func (c *Config) Validate() error {
	if c.TmnCode == "" {
		return fmt.Errorf("VNPay TmnCode is required")
	}
	if c.HashSecret == "" {
		return fmt.Errorf("VNPay HashSecret is required")
	}
	if c.APIUrl == "" {
		return fmt.Errorf("VNPay APIUrl is required")
	}
	if c.ReturnURL == "" {
		return fmt.Errorf("VNPay ReturnURL is required")
	}
	if c.SendIPNURL && c.IPNURL == "" {
		return fmt.Errorf("VNPay IPNURL is required when SendIPNURL is set")
	}
	return nil
}

// GetPaymentURL returns full payment URL
func (c *Config) GetPaymentURL() string {
	base := strings.TrimRight(c.APIUrl, "/")
	if strings.HasSuffix(base, "/vpcpay.html") {
		return base
	}
	return base + "/paymentv2/vpcpay.html"
}

// MaskedSecret is safe to log.
func (c *Config) MaskedSecret() string {
	if len(c.HashSecret) <= 4 {
		return "****"
	}
	return c.HashSecret[:4] + strings.Repeat("*", len(c.HashSecret)-4)
}

// =====================================================
// VNPAY CONSTANTS
// =====================================================

const (
	// Response codes
	ResponseCodeSuccess               = "00"
	ResponseCodeSuspicious            = "07"
	ResponseCodeNotRegistered         = "09"
	ResponseCodeAuthFailed            = "10"
	ResponseCodeTimeout               = "11"
	ResponseCodeCardLocked            = "12"
	ResponseCodeIncorrectOTP          = "13"
	ResponseCodeUserCancelled         = "24"
	ResponseCodeInsufficientBalance   = "51"
	ResponseCodeLimitExceeded         = "65"
	ResponseCodeBankMaintenance       = "75"
	ResponseCodePasswordRetryExceeded = "79"
	ResponseCodeOther                 = "99"

	TransactionStatusSuccess = "00"
)

var responseMessages = map[string]string{
	ResponseCodeSuccess:               "Giao dịch thành công",
	ResponseCodeSuspicious:            "Trừ tiền thành công. Giao dịch bị nghi ngờ (liên quan tới lừa đảo, giao dịch bất thường)",
	ResponseCodeNotRegistered:         "Thẻ/Tài khoản chưa đăng ký dịch vụ InternetBanking",
	ResponseCodeAuthFailed:            "Xác thực thông tin thẻ/tài khoản không đúng quá 3 lần",
	ResponseCodeTimeout:               "Đã hết hạn chờ thanh toán",
	ResponseCodeCardLocked:            "Thẻ/Tài khoản bị khóa",
	ResponseCodeIncorrectOTP:          "Nhập sai mật khẩu xác thực giao dịch (OTP)",
	ResponseCodeUserCancelled:         "Khách hàng hủy giao dịch",
	ResponseCodeInsufficientBalance:   "Tài khoản không đủ số dư",
	ResponseCodeLimitExceeded:         "Tài khoản vượt quá hạn mức giao dịch trong ngày",
	ResponseCodeBankMaintenance:       "Ngân hàng thanh toán đang bảo trì",
	ResponseCodePasswordRetryExceeded: "Nhập sai mật khẩu thanh toán quá số lần quy định",
}

// GetResponseMessage returns Vietnamese message for response code
func GetResponseMessage(code string) string {
	if msg, exists := responseMessages[code]; exists {
		return msg
	}
	return "Lỗi không xác định"
}
