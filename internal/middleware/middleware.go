package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ErrorHandler renders the last error a handler attached with c.Error.
// Internal failures are logged in full and rendered opaquely.
func ErrorHandler(log logger.ZapLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := apperr.From(c.Errors.Last().Err)
		status := appErr.HTTPStatus()
		if m != nil {
			m.RecordError(string(appErr.Kind), appErr.Code)
		}

		fields := []zap.Field{
			zap.String("code", appErr.Code),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(appErr),
		}

		body := ErrorResponse{Error: appErr.Code, Message: appErr.Message}
		switch appErr.Kind {
		case apperr.KindInternal:
			log.Error("request failed", fields...)
			body = ErrorResponse{Error: "internal_error"}
		case apperr.KindRetryable:
			log.Warn("request failed, retryable", fields...)
		default:
			log.Debug("request rejected", fields...)
		}
		if body.Message == body.Error {
			body.Message = ""
		}

		c.JSON(status, body)
	}
}

// Timeout bounds the request context. Store transactions observe it and
// surface expiry as a retryable failure.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Metrics records request counts and latency per route pattern.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Logger writes one line per request.
func Logger(log logger.ZapLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// NotFound renders unknown routes in the common error shape.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
}
