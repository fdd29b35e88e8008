package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Middleware(secret, logger.NewNop()), func(c *gin.Context) {
		actor := GetActor(c)
		fromCtx, ok := ActorFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"tenant": actor.TenantID, "user": actor.UserID, "ip": actor.IP, "ua": actor.UserAgent, "ctx": ok && fromCtx == actor})
	})
	return r
}

func TestMiddlewareResolvesActor(t *testing.T) {
	token, err := SignToken(secret, "tenant-1", "user-1", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "ledger-test")
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tenant":"tenant-1","user":"user-1","ip":"203.0.113.7","ua":"ledger-test","ctx":true}`, w.Body.String())
}

func TestMiddlewareRejects(t *testing.T) {
	expired, err := SignToken(secret, "tenant-1", "user-1", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := SignToken("other-secret", "tenant-1", "user-1", time.Hour)
	require.NoError(t, err)
	noTenant, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"no tenant claim", "Bearer " + noTenant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error":"unauthorized"`)
		})
	}
}
