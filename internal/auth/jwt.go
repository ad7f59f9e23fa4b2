package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yyup/kindergarten-service/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier turns a bearer token into an Identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

type Claims struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Tenant      string   `json:"tenant,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*models.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, ErrInvalidToken
	}

	return &models.Identity{
		UserID:      userID,
		Username:    claims.Username,
		Role:        models.ParseRole(claims.Role),
		Tenant:      claims.Tenant,
		Permissions: claims.Permissions,
	}, nil
}

// IssueToken signs a token for the identity. Used by local tooling and tests.
func (v *JWTVerifier) IssueToken(identity models.Identity, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:      identity.UserID,
		Username:    identity.Username,
		Role:        string(identity.Role),
		Tenant:      identity.Tenant,
		Permissions: identity.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier []TokenVerifier

func (c ChainVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	if len(c) == 0 {
		return nil, ErrInvalidToken
	}
	var errs []error
	for _, v := range c {
		identity, err := v.Verify(ctx, token)
		if err == nil {
			return identity, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}
