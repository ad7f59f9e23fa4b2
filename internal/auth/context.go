package auth

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/models"
)

const identityKey = "identity"

type identityCtxKey struct{}

// WithIdentity stores the identity on a plain context for services.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(*models.Identity)
	return identity, ok && identity != nil
}

// SetIdentity attaches the identity to both the gin context and the request context.
func SetIdentity(c *gin.Context, identity *models.Identity) {
	c.Set(identityKey, identity)
	c.Set("user_id", identity.UserID)
	c.Set("user_role", identity.Role)
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
}

// GetIdentity returns the identity set by the auth gate.
func GetIdentity(c *gin.Context) (*models.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*models.Identity)
	return identity, ok && identity != nil
}
