package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func TestDecodeToken_Claims(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	raw := signedTestToken(t, jwt.MapClaims{
		"sub":          "user-1",
		"aud":          "graph",
		"scope":        "read write",
		"iat":          now.Unix(),
		"exp":          now.Add(time.Hour).Unix(),
		"organization": "acme",
	})

	claims, err := DecodeToken(raw)
	if err != nil {
		t.Fatalf("DecodeToken() error = %v", err)
	}

	if claims.Subject != "user-1" {
		t.Errorf("Subject = %q, want user-1", claims.Subject)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "graph" {
		t.Errorf("Audience = %v, want [graph]", claims.Audience)
	}
	if len(claims.Scopes) != 2 || claims.Scopes[0] != "read" || claims.Scopes[1] != "write" {
		t.Errorf("Scopes = %v, want [read write]", claims.Scopes)
	}
	if !claims.IssuedAt.Equal(now) {
		t.Errorf("IssuedAt = %v, want %v", claims.IssuedAt, now)
	}
	if !claims.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, now.Add(time.Hour))
	}
	if claims.Attributes["organization"] != "acme" {
		t.Errorf("Attributes[organization] = %v, want acme", claims.Attributes["organization"])
	}
	if _, leaked := claims.Attributes["sub"]; leaked {
		t.Error("registered claim sub must not appear in Attributes")
	}
}

func TestDecodeToken_NoSignatureVerification(t *testing.T) {
	// A token signed with an unknown key still decodes: this accessor reads
	// claims, it does not validate trust.
	raw := signedTestToken(t, jwt.MapClaims{"sub": "anyone"})

	claims, err := DecodeToken(raw)
	if err != nil {
		t.Fatalf("DecodeToken() error = %v", err)
	}
	if claims.Subject != "anyone" {
		t.Errorf("Subject = %q, want anyone", claims.Subject)
	}
}

func TestDecodeToken_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "not a jwt", raw: "just-an-opaque-string"},
		{name: "bad payload", raw: "eyJhbGciOiJIUzI1NiJ9.!!!not-base64!!!.sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeToken(tt.raw)
			if !errors.Is(err, ErrMalformedToken) {
				t.Errorf("DecodeToken(%q) error = %v, want ErrMalformedToken", tt.raw, err)
			}
		})
	}
}
