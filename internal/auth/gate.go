package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/response"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
)

// GrantStore answers permission checks the role whitelists do not cover.
// Implementations query the tenant schema bound to ctx.
type GrantStore interface {
	HasPermission(ctx context.Context, userID string, permission models.Permission) (bool, error)
}

// Gate builds the authentication and authorization handlers used in route chains.
// Handlers abort on failure and return on success; they never call c.Next.
type Gate struct {
	verifier TokenVerifier
	tenants  *tenant.Registry
	grants   GrantStore
	logger   utils.Logger
}

func NewGate(verifier TokenVerifier, tenants *tenant.Registry, grants GrantStore, logger utils.Logger) *Gate {
	return &Gate{
		verifier: verifier,
		tenants:  tenants,
		grants:   grants,
		logger:   logger,
	}
}

// Authenticate requires a valid bearer token and an allowlisted tenant.
func (g *Gate) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := g.identify(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.MsgUnauthorized, response.CodeUnauthorized)
			return
		}
		g.bind(c, identity)
	}
}

// Optional attaches an identity when a valid token is present and never fails.
func (g *Gate) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, ok := g.identify(c); ok {
			g.bind(c, identity)
		}
	}
}

func (g *Gate) identify(c *gin.Context) (*models.Identity, bool) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil, false
	}

	identity, err := g.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		g.logger.Debug("Token verification failed", "error", err, "path", c.Request.URL.Path)
		return nil, false
	}

	schema, err := g.resolveTenant(identity, c.GetHeader(tenant.HeaderName))
	if err != nil {
		g.logger.Warn("Rejected request for unknown tenant",
			"user_id", identity.UserID,
			"tenant", identity.Tenant,
			"header", c.GetHeader(tenant.HeaderName))
		return nil, false
	}
	identity.Tenant = schema
	return identity, true
}

// resolveTenant prefers the token claim. Only admins may pick a tenant through
// the header; other identities without a claim get the default tenant, and a
// header naming a different one is refused.
func (g *Gate) resolveTenant(identity *models.Identity, header string) (string, error) {
	if strings.TrimSpace(identity.Tenant) != "" {
		return g.tenants.Resolve(identity.Tenant)
	}
	if identity.IsAdmin() {
		return g.tenants.ResolveFirst(header)
	}

	schema, err := g.tenants.ResolveFirst()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(header) == "" {
		return schema, nil
	}
	requested, err := g.tenants.Resolve(header)
	if err != nil {
		return "", err
	}
	if requested != schema {
		return "", tenant.ErrUnknownTenant
	}
	return schema, nil
}

func (g *Gate) bind(c *gin.Context, identity *models.Identity) {
	SetIdentity(c, identity)
	c.Request = c.Request.WithContext(tenant.WithSchema(c.Request.Context(), identity.Tenant))
}

// RequirePermission allows admins, token grants, role whitelists, then the grant store.
func (g *Gate) RequirePermission(permission models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.MsgUnauthorized, response.CodeUnauthorized)
			return
		}
		if !g.allowed(c.Request.Context(), identity, permission) {
			response.Abort(c, http.StatusForbidden, response.MsgForbidden, response.CodeForbidden)
			return
		}
	}
}

func (g *Gate) allowed(ctx context.Context, identity *models.Identity, permission models.Permission) bool {
	if identity.IsAdmin() {
		return true
	}
	if identity.HasTokenPermission(permission) {
		return true
	}
	if models.RoleAllows(identity.Role, permission) {
		return true
	}
	if g.grants == nil {
		return false
	}

	granted, err := g.grants.HasPermission(ctx, identity.UserID, permission)
	if err != nil {
		g.logger.Error("Permission lookup failed",
			"error", err,
			"user_id", identity.UserID,
			"permission", string(permission))
		return false
	}
	return granted
}

// RequireRole allows the listed roles. Admin always passes.
func (g *Gate) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.MsgUnauthorized, response.CodeUnauthorized)
			return
		}
		if identity.IsAdmin() {
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				return
			}
		}
		response.Abort(c, http.StatusForbidden, response.MsgForbidden, response.CodeForbidden)
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
