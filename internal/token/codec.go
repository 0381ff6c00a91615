// Package token issues and parses the signed, purpose-tagged credentials used
// across the service: short-lived access tokens, long-lived refresh tokens and
// medium-lived email confirmation / password reset tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeEmailConfirm  Purpose = "email_confirm"
	PurposePasswordReset Purpose = "password_reset"
)

// Parse failures, ordered by precedence: a bad signature wins over a bad
// structure, which wins over expiry, which wins over a purpose mismatch.
var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMalformed        = errors.New("malformed token")
	ErrExpired          = errors.New("token expired")
	ErrWrongPurpose     = errors.New("wrong token purpose")
)

// Claims is the decoded payload of a verified token. It is never persisted;
// validity is a function of signature, expiry and purpose alone.
type Claims struct {
	Email     string
	Purpose   Purpose
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type wireClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewCodec(secret, issuer string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("jwt secret required")
	}
	return &Codec{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// WithClock overrides the codec clock, for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issue signs a claims bundle for the given subject email. Every token carries
// a fresh jti, so two tokens issued within the same second are still distinct.
func (c *Codec) Issue(email string, purpose Purpose, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	claims := wireClaims{
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    c.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return signed, nil
}

// Parse verifies signature, structure and expiry, then checks that the token
// was issued for the expected purpose. A correctly signed token presented to
// the wrong consumer fails with ErrWrongPurpose, never with success.
func (c *Codec) Parse(tokenStr string, expected Purpose) (*Claims, error) {
	claims := &wireClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	default:
		return nil, ErrMalformed
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	if Purpose(claims.Purpose) != expected {
		return nil, ErrWrongPurpose
	}
	out := &Claims{
		Email:     claims.Subject,
		Purpose:   Purpose(claims.Purpose),
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
