package auth

import (
	"context"
	"errors"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/yyup/kindergarten-service/internal/config"
	"github.com/yyup/kindergarten-service/internal/models"
)

// CasdoorVerifier accepts tokens issued by a Casdoor deployment.
type CasdoorVerifier struct {
	client *casdoorsdk.Client
}

func NewCasdoorVerifier(cfg config.CasdoorConfig) *CasdoorVerifier {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return &CasdoorVerifier{client: client}
}

func (v *CasdoorVerifier) Verify(_ context.Context, token string) (*models.Identity, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return identityFromCasdoorClaims(claims)
}

func identityFromCasdoorClaims(claims *casdoorsdk.Claims) (*models.Identity, error) {
	userID := claims.User.Id
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, ErrInvalidToken
	}

	var permissions []string
	for _, p := range claims.User.Permissions {
		if p != nil && p.Name != "" {
			permissions = append(permissions, p.Name)
		}
	}

	role := models.ParseRole(claims.User.Type)
	if claims.User.IsAdmin {
		role = models.RoleAdmin
	}

	return &models.Identity{
		UserID:      userID,
		Username:    claims.User.Name,
		Role:        role,
		Tenant:      claims.User.Owner,
		Permissions: permissions,
	}, nil
}
