package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

// Config chứa toàn bộ application configuration
// Struct này được populate từ environment variables
type Config struct {
	App       AppConfig
	VNPay     VNPayConfig
	Callback  CallbackConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Ticket    TicketConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	PublicURL   string // base URL the browser sees, used for default redirects
	LogLevel    string

	// TrustedProxies lists proxy IPs/CIDRs whose forwarding headers are
	// believed. Empty means the direct peer address is always the client.
	TrustedProxies []string
}

// =====================================================
// VNPAY CONFIGURATION
// =====================================================

type VNPayConfig struct {
	TmnCode         string        // Merchant Code (e.g., "DEMOV01")
	HashSecret      string        // Secret key for HMAC-SHA512
	APIURL          string        // VNPay API base URL
	ReturnURL       string        // Browser return URL (this service)
	IPNURL          string        // Backend webhook URL
	SpaceAsPlus     bool          // encode ' ' as '+' instead of %20
	IncludeHashType bool          // append vnp_SecureHashType to the query
	SendIPNURL      bool          // send vnp_IpnUrl with the pay request
	ExpireAfter     time.Duration // vnp_ExpireDate offset
	Locale          string        // vn | en
	DebugEndpoints  bool          // expose POST /payments/vnpay/debug
}

// =====================================================
// CALLBACK STORE CONFIGURATION
// =====================================================

const (
	CallbackStoreMemory = "memory"
	CallbackStoreRedis  = "redis"
)

type CallbackConfig struct {
	Store         string // memory | redis
	TTL           time.Duration
	MaxEntries    int
	RedirectURL   string // used when a payment request carries no redirect_url
	SweepSchedule string // cron schedule for purging expired memory entries, "off" disables
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type TicketConfig struct {
	QRSize int
}

// Load đọc config từ environment variables
func Load() (*Config, error) {
	publicURL := strings.TrimRight(getEnv("APP_PUBLIC_URL", "http://localhost:8080"), "/")

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "VNPay Broker"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			PublicURL:   publicURL,
			LogLevel:    getEnv("LOG_LEVEL", "info"),

			TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		},
		VNPay: VNPayConfig{
			TmnCode:         getEnv("VNPAY_TMN_CODE", ""),
			HashSecret:      getEnv("VNPAY_HASH_SECRET", ""),
			APIURL:          getEnv("VNPAY_API_URL", "https://sandbox.vnpayment.vn"),
			ReturnURL:       getEnv("VNPAY_RETURN_URL", publicURL+"/api/v1/payments/vnpay/return"),
			IPNURL:          getEnv("VNPAY_IPN_URL", publicURL+"/api/v1/webhooks/vnpay"),
			SpaceAsPlus:     getEnvBool("VNPAY_SPACE_AS_PLUS", false),
			IncludeHashType: getEnvBool("VNPAY_INCLUDE_HASH_TYPE", false),
			SendIPNURL:      getEnvBool("VNPAY_SEND_IPN_URL", false),
			ExpireAfter:     time.Duration(getEnvInt("VNPAY_EXPIRE_MINUTES", 15)) * time.Minute,
			Locale:          getEnv("VNPAY_LOCALE", "vn"),
			DebugEndpoints:  getEnvBool("VNPAY_DEBUG_ENDPOINTS", false),
		},
		Callback: CallbackConfig{
			Store:         strings.ToLower(getEnv("CALLBACK_STORE", CallbackStoreMemory)),
			TTL:           getEnvDuration("CALLBACK_TTL", 30*time.Minute),
			MaxEntries:    getEnvInt("CALLBACK_MAX_ENTRIES", 10000),
			RedirectURL:   getEnv("PAYMENT_RESULT_URL", publicURL+"/payment/result"),
			SweepSchedule: getEnv("CALLBACK_SWEEP_SCHEDULE", "@every 1m"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst: getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Ticket: TicketConfig{
			QRSize: getEnvInt("TICKET_QR_SIZE", 256),
		},
	}

	// Validate critical config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate kiểm tra config có hợp lệ không
func (c *Config) Validate() error {
	if c.VNPay.TmnCode == "" {
		return fmt.Errorf("VNPAY_TMN_CODE is required")
	}
	if c.VNPay.HashSecret == "" {
		return fmt.Errorf("VNPAY_HASH_SECRET is required")
	}

	switch c.Callback.Store {
	case CallbackStoreMemory, CallbackStoreRedis:
	default:
		return fmt.Errorf("CALLBACK_STORE must be %q or %q, got %q", CallbackStoreMemory, CallbackStoreRedis, c.Callback.Store)
	}
	if c.Callback.TTL <= 0 {
		return fmt.Errorf("CALLBACK_TTL must be positive")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	for _, proxy := range c.App.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy)
		}
	}

	// Production: debug endpoint leaks signable strings
	if c.IsProduction() && c.VNPay.DebugEndpoints {
		log.Warn().Msg("VNPAY_DEBUG_ENDPOINTS is enabled in production")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := cast.ToIntE(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid integer env, using default")
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := cast.ToFloat64E(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid float env, using default")
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := cast.ToBoolE(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid bool env, using default")
		return defaultValue
	}
	return value
}

// getEnvList splits a comma-separated value, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validProxy(value string) bool {
	if net.ParseIP(value) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(value)
	return err == nil
}

// getEnvDuration accepts Go durations ("45m") or bare seconds ("2700")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := cast.ToInt64E(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid duration env, using default")
		return defaultValue
	}
	return value
}
