package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the bearer token plus the claims the client can read
// locally. The signature is never verified here; the backend does that.
type Credentials struct {
	Token   string
	Subject string
	Expires time.Time
}

// ParseToken reads sub and exp from a JWT without verifying it. For an
// opaque token the returned Credentials carry only Token and err is non-nil.
func ParseToken(token string) (Credentials, error) {
	creds := Credentials{Token: token}
	if token == "" {
		return creds, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return creds, fmt.Errorf("api: parse token: %w", err)
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		creds.Subject = sub
	} else if id, ok := claims["id"].(string); ok {
		creds.Subject = id
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		creds.Expires = exp.Time
	}
	return creds, nil
}

// Expired reports whether the token carries an exp claim at or before now.
func (c Credentials) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !now.Before(c.Expires)
}
