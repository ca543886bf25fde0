package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnpay-broker/internal/config"
	"vnpay-broker/internal/domains/payment/gateway/vnpay"
	"vnpay-broker/pkg/container"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "test", Environment: "test", Port: "0", Version: "test", PublicURL: "http://localhost:8080"},
		VNPay: config.VNPayConfig{
			TmnCode:     "DEMOV01",
			HashSecret:  "SECRETKEY123",
			APIURL:      "https://sandbox.vnpayment.vn",
			ReturnURL:   "http://localhost:8080/api/v1/payments/vnpay/return",
			IPNURL:      "http://localhost:8080/api/v1/webhooks/vnpay",
			ExpireAfter: 15 * time.Minute,
			Locale:      "vn",
		},
		Callback: config.CallbackConfig{
			Store:       config.CallbackStoreMemory,
			TTL:         time.Minute,
			MaxEntries:  100,
			RedirectURL: "http://localhost:3000/payment/result",
		},
		RateLimit: config.RateLimitConfig{RPS: 100, Burst: 100},
		Ticket:    config.TicketConfig{QRSize: 64},
	}
}

func setupTestRouter(t *testing.T, mutate func(*config.Config)) (*gin.Engine, *container.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	c, err := container.NewContainerWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Cleanup)

	return SetupRouter(c), c
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := setupTestRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"callback_store":"memory"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestDebugRoute_Toggle(t *testing.T) {
	body := `{"query":"vnp_Amount=100&vnp_SecureHash=abc"}`

	r, _ := setupTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay/debug", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusNotFound, serve(r, req).Code)

	r, _ = setupTestRouter(t, func(cfg *config.Config) { cfg.VNPay.DebugEndpoints = true })
	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay/debug", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"matches":false`)
}

func TestCreatePayment_RateLimited(t *testing.T) {
	r, _ := setupTestRouter(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	})

	create := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay", strings.NewReader(`{"amount":"10000"}`))
		req.Header.Set("Content-Type", "application/json")
		return serve(r, req)
	}

	assert.Equal(t, http.StatusCreated, create().Code)
	w := create()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestCreatePayment_RateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	create := func(r *gin.Engine, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay", strings.NewReader(`{"amount":"10000"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		return serve(r, req).Code
	}
	limited := func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	}

	t.Run("untrusted peer", func(t *testing.T) {
		r, _ := setupTestRouter(t, limited)

		assert.Equal(t, http.StatusCreated, create(r, "203.0.113.1"))
		assert.Equal(t, http.StatusTooManyRequests, create(r, "203.0.113.2"))
		assert.Equal(t, http.StatusTooManyRequests, create(r, "203.0.113.3"))
	})

	t.Run("trusted proxy", func(t *testing.T) {
		// httptest requests arrive from 192.0.2.1
		r, _ := setupTestRouter(t, func(cfg *config.Config) {
			limited(cfg)
			cfg.App.TrustedProxies = []string{"192.0.2.1"}
		})

		assert.Equal(t, http.StatusCreated, create(r, "203.0.113.1"))
		assert.Equal(t, http.StatusCreated, create(r, "203.0.113.2"))
		assert.Equal(t, http.StatusTooManyRequests, create(r, "203.0.113.1"))
	})
}

// Drives create -> IPN -> return through the real router and VNPay client.
func TestPaymentFlow(t *testing.T) {
	r, c := setupTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay",
		strings.NewReader(`{"amount":"150000","txn_ref":"ORDER42","redirect_url":"https://shop.example.com/done"}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "vnp_TxnRef=ORDER42")

	client, ok := c.VNPayGateway.(*vnpay.Client)
	require.True(t, ok)

	params := vnpay.Params{
		"vnp_TmnCode":           "DEMOV01",
		"vnp_TxnRef":            "ORDER42",
		"vnp_Amount":            "15000000",
		"vnp_OrderInfo":         "Thanh toan don hang ORDER42",
		"vnp_ResponseCode":      "00",
		"vnp_TransactionStatus": "00",
		"vnp_TransactionNo":     "14000042",
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set(vnpay.ParamSecureHash, client.Codec().Sign(client.Codec().EncodeSignable(params, vnpay.ModeEncoded)))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/vnpay?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var ipn struct {
		RspCode string `json:"RspCode"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ipn))
	assert.Equal(t, "00", ipn.RspCode)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/return?"+q.Encode(), nil))
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", loc.Host)
	assert.Equal(t, "success", loc.Query().Get("status"))
	assert.Equal(t, "ORDER42", loc.Query().Get("txnRef"))
}

func TestTicketRoutes(t *testing.T) {
	r, _ := setupTestRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/tickets/view?data=%7B%22code%22%3A%22TK-1%22%7D", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "TK-1")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/bookings/view", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
