package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the decoded claims of an access token.
//
// Decoding performs no signature verification: this is a convenience
// accessor for claims the caller already trusts, not a trust boundary.
type TokenClaims struct {
	Subject   string
	Audience  []string
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Attributes holds every non-registered claim verbatim, preserving
	// platform identity fields without enumerating them here.
	Attributes map[string]any
}

// registered claims folded into typed fields rather than Attributes.
var registeredClaimNames = map[string]struct{}{
	"sub": {}, "aud": {}, "scope": {}, "iat": {}, "exp": {}, "nbf": {}, "iss": {}, "jti": {},
}

// DecodeToken parses the payload segment of an access token into claims.
// Fails with ErrMalformedToken when the payload cannot be decoded.
func DecodeToken(raw string) (*TokenClaims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	claims := &TokenClaims{
		Attributes: make(map[string]any),
	}

	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if aud, err := mapClaims.GetAudience(); err == nil {
		claims.Audience = aud
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if scope, ok := mapClaims["scope"].(string); ok && scope != "" {
		claims.Scopes = strings.Fields(scope)
	}

	for key, value := range mapClaims {
		if _, registered := registeredClaimNames[key]; registered {
			continue
		}
		claims.Attributes[key] = value
	}

	return claims, nil
}
