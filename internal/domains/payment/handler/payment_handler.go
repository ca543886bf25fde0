package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vnpay-broker/internal/domains/payment/gateway/vnpay"
	"vnpay-broker/internal/domains/payment/model"
	"vnpay-broker/internal/domains/payment/service"
	res "vnpay-broker/internal/shared/response"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates new payment handler
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// =====================================================
// USER PAYMENT ENDPOINTS
// =====================================================

// CreatePayment signs a VNPay payment URL
// POST /api/v1/payments/vnpay
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	// Step 1: Bind request body
	var req model.CreatePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		res.BadRequest(c, err.Error())
		return
	}

	// Step 2: Call service (validates)
	response, err := h.paymentService.CreatePayment(c.Request.Context(), req)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	res.Success(c, http.StatusCreated, "OK", response)
}

// VNPayReturn handles the browser coming back from VNPay
// GET /api/v1/payments/vnpay/return
//
// Redirects to the stored target. Without a target, or with ?format=json,
// the verified result is returned as JSON.
func (h *PaymentHandler) VNPayReturn(c *gin.Context) {
	params, err := callbackParams(c)
	if err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidCallbackPayload, err.Error())
		return
	}

	result, err := h.paymentService.HandleReturn(c.Request.Context(), params)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	if result.RedirectURL == "" || wantsJSON(c) {
		res.Success(c, http.StatusOK, result.Message, result)
		return
	}
	c.Redirect(http.StatusFound, result.RedirectURL)
}

// =====================================================
// WEBHOOK ENDPOINTS
// =====================================================

// VNPayIPN handles VNPay IPN callback
// GET/POST /api/v1/webhooks/vnpay
//
// VNPay only reads the RspCode body, so this always answers 200.
func (h *PaymentHandler) VNPayIPN(c *gin.Context) {
	params, err := callbackParams(c)
	if err != nil {
		c.JSON(http.StatusOK, model.NewIPNResponse(model.IPNUnknownError))
		return
	}

	c.JSON(http.StatusOK, h.paymentService.HandleIPN(c.Request.Context(), params))
}

// =====================================================
// OPERATOR ENDPOINTS
// =====================================================

// DebugSignature shows the encoded and raw signatures side by side
// POST /api/v1/payments/vnpay/debug
func (h *PaymentHandler) DebugSignature(c *gin.Context) {
	var req model.DebugSignatureRequest
	if err := bindJSON(c, &req); err != nil {
		res.BadRequest(c, err.Error())
		return
	}

	report, err := h.paymentService.DebugSignature(c.Request.Context(), req)
	if err != nil {
		statusCode, errCode := mapPaymentError(err)
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	res.Success(c, http.StatusOK, "OK", report)
}

// =====================================================
// ERROR MAPPING HELPER
// =====================================================

func mapPaymentError(err error) (statusCode int, errorCode string) {
	// Default
	statusCode = http.StatusInternalServerError
	errorCode = model.ErrCodeInternalError

	var paymentErr *model.PaymentError
	if errors.As(err, &paymentErr) {
		errorCode = paymentErr.Code

		switch paymentErr.Code {
		case model.ErrCodeInvalidRequest, model.ErrCodeInvalidCallbackPayload:
			statusCode = http.StatusBadRequest
		case model.ErrCodeInvalidSignature:
			statusCode = http.StatusUnauthorized
		case model.ErrCodeDuplicateTxnRef:
			statusCode = http.StatusConflict
		case model.ErrCodeGatewayUnavailable, model.ErrCodeCallbackStoreFailed:
			statusCode = http.StatusServiceUnavailable
		default:
			statusCode = http.StatusInternalServerError
		}
	}

	return statusCode, errorCode
}

// =====================================================
// HELPER FUNCTIONS
// =====================================================

// bindJSON binds JSON request body
func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// callbackParams collects vnp_* fields from the query string and, for
// POST, the form body
func callbackParams(c *gin.Context) (map[string]string, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid callback parameters: %w", err)
	}
	return vnpay.ParamsFromValues(c.Request.Form), nil
}

func wantsJSON(c *gin.Context) bool {
	if c.Query("format") == "json" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
