package auth

import (
	"context"
	"strings"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/gin-gonic/gin"
)

type ctxKey struct{}

const actorKey = "actor"

// WithActor stores the caller on the request context so code below the
// handler can read it without gin.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFromContext returns the caller stored by WithActor.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(ctxKey{}).(model.Actor)
	return actor, ok
}

// SetActor attaches the authenticated caller to the request.
func SetActor(c *gin.Context, tenantID, userID string) {
	actor := model.Actor{
		TenantID:  tenantID,
		UserID:    userID,
		IP:        clientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
	}
	c.Set(actorKey, actor)
	c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
}

// GetActor returns the caller resolved by the middleware. The zero Actor is
// returned on routes that skip authentication.
func GetActor(c *gin.Context) model.Actor {
	if val, ok := c.Get(actorKey); ok {
		if actor, ok := val.(model.Actor); ok {
			return actor
		}
	}
	return model.Actor{}
}

// clientIP prefers the first X-Forwarded-For hop.
func clientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}
