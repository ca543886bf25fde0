package handler

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnpay-broker/internal/domains/ticket/service"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTicketHandler(service.NewRenderer(64))

	r := gin.New()
	r.GET("/tickets/view", h.ViewTicket)
	r.GET("/bookings/view", h.ViewBooking)
	return r
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestViewTicket(t *testing.T) {
	r := setupRouter()
	data := base64.RawURLEncoding.EncodeToString([]byte(`{"code":"TK-7","event":"Live show","kind":"booking"}`))

	w := get(r, "/tickets/view?data="+data)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(w.Body.String()))
	require.NoError(t, err)
	assert.Equal(t, "TK-7", doc.Find("#code").Text())

	// the route wins over the payload kind
	kind, _ := doc.Find("main").Attr("data-kind")
	assert.Equal(t, "ticket", kind)
}

func TestViewBooking(t *testing.T) {
	r := setupRouter()
	data := base64.RawURLEncoding.EncodeToString([]byte(`{"code":"BK-1"}`))

	w := get(r, "/bookings/view?data="+data)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-kind="booking"`)
}

func TestView_InvalidPayload(t *testing.T) {
	r := setupRouter()

	for _, target := range []string{"/tickets/view", "/tickets/view?data=%25%25%25", "/bookings/view?data=e30"} {
		w := get(r, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Contains(t, w.Body.String(), `id="message"`, target)
	}
}
