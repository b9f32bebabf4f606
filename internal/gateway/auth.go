package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for any credential the verifier rejects.
var ErrUnauthorized = errors.New("unauthorized")

// Verifier authenticates a bearer credential into a stable subject id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// JWTVerifier validates HMAC-signed bearer tokens.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier builds a verifier over a shared HMAC secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token, returning its subject claim.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (string, error) {
	_ = ctx

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrUnauthorized
	}
	return subject, nil
}

// DevVerifier is the constrained development bypass used when no credential
// system is configured: the bearer token is taken verbatim as the subject id.
// It still rejects empty and structurally unusable tokens.
type DevVerifier struct{}

// Verify accepts any simple token as its own subject.
func (DevVerifier) Verify(ctx context.Context, token string) (string, error) {
	_ = ctx

	subject := strings.TrimSpace(token)
	if subject == "" || strings.ContainsAny(subject, " \t\n") {
		return "", ErrUnauthorized
	}
	return subject, nil
}
