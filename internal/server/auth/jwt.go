// Package auth verifies access tokens and carries the resulting caller
// through request contexts. Tokens are issued elsewhere; GenerateToken
// exists for tooling and tests.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pagetree/internal/common"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the caller's capabilities. The
// subject is the caller ID.
type Claims struct {
	jwt.RegisteredClaims
	Admin     bool     `json:"adm,omitempty"`
	CMSAccess bool     `json:"cms,omitempty"`
	Groups    []string `json:"grp,omitempty"`
}

func GenerateToken(c models.Caller, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Admin:     c.Admin,
		CMSAccess: c.CMSAccess,
		Groups:    c.Groups,
	})

	return token.SignedString(secretKey)
}

// CallerFromToken verifies tokenString and returns the caller it names.
// Every failure wraps common.ErrInvalidToken.
func CallerFromToken(tokenString string, secretKey []byte) (models.Caller, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Caller{}, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return models.Caller{}, common.ErrInvalidToken
	}

	return models.Caller{
		ID:        claims.Subject,
		Admin:     claims.Admin,
		CMSAccess: claims.CMSAccess,
		Groups:    claims.Groups,
	}, nil
}

type callerKey struct{}

// WithCaller stores c in ctx.
func WithCaller(ctx context.Context, c models.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller stored by WithCaller, or the
// anonymous caller.
func CallerFromContext(ctx context.Context) models.Caller {
	c, _ := ctx.Value(callerKey{}).(models.Caller)
	return c
}
