// Package auth verifies the service-to-service bearer token on sync routes.
// Two modes: a static shared secret compared in constant time, or an HS256
// JWT signed with the shared secret (audience-checked). Callers of this
// service are other backends, never browsers.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Modes.
const (
	ModeStatic = "static"
	ModeJWT    = "jwt"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid service token")
)

// Verifier checks service bearer tokens.
type Verifier struct {
	mode     string
	secret   []byte
	audience string
	leeway   time.Duration
}

// NewVerifier builds a verifier. mode is "static" (default) or "jwt";
// audience only applies to JWT mode.
func NewVerifier(mode, secret, audience string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("service token secret required")
	}
	switch mode {
	case "", ModeStatic:
		mode = ModeStatic
	case ModeJWT:
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
	return &Verifier{
		mode:     mode,
		secret:   []byte(secret),
		audience: audience,
		leeway:   30 * time.Second,
	}, nil
}

// VerifyHeader checks a raw Authorization header value ("Bearer <token>").
func (v *Verifier) VerifyHeader(header string) error {
	token, ok := ExtractBearer(header)
	if !ok {
		return ErrMissingToken
	}
	return v.Verify(token)
}

// Verify checks the bare token according to the configured mode.
func (v *Verifier) Verify(token string) error {
	switch v.mode {
	case ModeStatic:
		if subtle.ConstantTimeCompare([]byte(token), v.secret) != 1 {
			return ErrInvalidToken
		}
		return nil
	case ModeJWT:
		return v.verifyJWT(token)
	default:
		return ErrInvalidToken
	}
}

func (v *Verifier) verifyJWT(token string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

// ExtractBearer splits "Bearer <token>" case-insensitively.
func ExtractBearer(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
