package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createItemRequest struct {
	Name     string `json:"name" binding:"required,max=10"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

func setupValidationRouter() *gin.Engine {
	SetupValidator()
	r := gin.New()
	r.POST("/items", func(c *gin.Context) {
		var req createItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": req.Name})
	})
	return r
}

func TestHandleBindingError(t *testing.T) {
	r := setupValidationRouter()

	t.Run("reports missing fields by json name", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"field":"name"`)
		assert.Contains(t, body, "This field is required")
		assert.Contains(t, body, "ERR_VALIDATION")
	})

	t.Run("reports range violations with the parameter", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/items",
			strings.NewReader(`{"name":"a-name-too-long","quantity":1}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Must be at most 10 characters")
	})

	t.Run("malformed json falls back to a plain bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{not json`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_BAD_REQUEST")
	})

	t.Run("valid payload passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/items",
			strings.NewReader(`{"name":"widget","quantity":3}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
