package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, m *metrics.Metrics, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNop(), m))
	r.GET("/x", h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad request",
			err:        apperr.BadRequest("negative_stock_not_allowed", "negative stock is not allowed"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"negative_stock_not_allowed","message":"negative stock is not allowed"}`,
		},
		{
			name:       "not found omits repeated message",
			err:        apperr.NotFound("item_not_found"),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"item_not_found"}`,
		},
		{
			name:       "conflict",
			err:        apperr.Conflict("sales order already cancelled"),
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"conflict","message":"sales order already cancelled"}`,
		},
		{
			name:       "invariant hides detail",
			err:        apperr.Invariant("inventory_balance_missing"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal_error"}`,
		},
		{
			name:       "unknown error is opaque",
			err:        errors.New("dial tcp: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal_error"}`,
		},
		{
			name:       "retryable",
			err:        apperr.Retryable("deadlock detected"),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"try_again","message":"deadlock detected"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, nil, func(c *gin.Context) { _ = c.Error(tt.err) })
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestErrorHandlerLeavesWrittenResponses(t *testing.T) {
	m := metrics.New()
	w := serve(t, m, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		_ = c.Error(errors.New("late"))
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.Equal(t, 0, testutil.CollectAndCount(m.ErrorsTotal))
}

func TestErrorHandlerRecordsMetric(t *testing.T) {
	m := metrics.New()
	serve(t, m, func(c *gin.Context) { _ = c.Error(apperr.NotFound("not_found")) })
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("not_found", "not_found")))
}

func TestTimeoutSetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Timeout(time.Second))
	var hasDeadline bool
	r.GET("/x", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, hasDeadline)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/items/:itemId/balance", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/abc/balance", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items/:itemId/balance", "200")))
}
