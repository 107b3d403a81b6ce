package core

import (
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any unusable token: malformed, bad
// signature, expired, or missing subject. Callers cannot tell these
// apart; the distinction only appears in internal logs.
var ErrInvalidToken = errors.New("invalid or expired token")

// Token is the login response payload. Tokens are not persisted:
// validity is purely a function of signature and expiry.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Tokens issues and verifies signed bearer tokens. The signing key and
// TTL are fixed at construction from config; rotating the key
// invalidates every outstanding token.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens builds a token issuer/verifier from the configured secret
// and TTL. now is overridable for tests; pass nil for time.Now.
func NewTokens(secret string, ttl time.Duration, now func() time.Time) *Tokens {
	if now == nil {
		now = time.Now
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: now}
}

// NewTokensFromConfig wires Tokens from validated config.
func NewTokensFromConfig(cfg Config) *Tokens {
	return NewTokens(cfg.TokenSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute, nil)
}

// Issue signs a bearer token bound to subject, expiring after the
// configured TTL. The TTL is never caller-supplied.
func (t *Tokens) Issue(subject string) (Token, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, TokenType: "bearer"}, nil
}

// Verify checks signature and expiry and returns the subject.
// Every failure mode collapses to ErrInvalidToken.
func (t *Tokens) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		log.Printf("token verification failed: %v", err)
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		log.Printf("token verification failed: missing subject claim")
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
