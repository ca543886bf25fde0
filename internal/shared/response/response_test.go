package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, write func(c *gin.Context)) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	write(c)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestSuccess(t *testing.T) {
	w, body := record(t, func(c *gin.Context) {
		Success(c, http.StatusCreated, "OK", gin.H{"txn_ref": "ORDER1"})
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "OK", body.Message)
	assert.Nil(t, body.Error)
}

func TestErrorResponse(t *testing.T) {
	w, body := record(t, func(c *gin.Context) {
		ErrorResponse(c, http.StatusUnauthorized, "PAY012", "invalid signature")
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "PAY012", body.Error.Code)
	assert.Equal(t, "invalid signature", body.Error.Message)
}

func TestBadRequest(t *testing.T) {
	w, body := record(t, func(c *gin.Context) {
		BadRequest(c, "invalid request body")
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", body.Error.Code)
}

func TestTooManyRequests_Aborts(t *testing.T) {
	var aborted bool
	w, body := record(t, func(c *gin.Context) {
		TooManyRequests(c, "slow down")
		aborted = c.IsAborted()
	})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
	assert.True(t, aborted)
}
