package httpapi

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// wsClaims are the JWT claims carried by the websocket token query parameter.
// The subject is the authenticated identity; identity resolution itself is
// handled by an external auth service that issues these tokens.
type wsClaims struct {
	jwt.RegisteredClaims
}

var errNoIdentity = errors.New("token has no subject")

// identityFromToken verifies an HS256 token and returns its subject.
func (r *Router) identityFromToken(tokenString string) (string, error) {
	parser := jwt.NewParser(jwt.WithExpirationRequired())
	token, err := parser.ParseWithClaims(tokenString, &wsClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(r.cfg.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*wsClaims)
	if !ok || claims.Subject == "" {
		return "", errNoIdentity
	}
	return claims.Subject, nil
}
