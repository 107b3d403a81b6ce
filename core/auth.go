package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when username/password is wrong.
	// Deliberately the same for unknown usernames and bad passwords so
	// responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned when a valid token names a
	// deactivated account. Distinct from ErrInvalidCredentials: this is
	// not a credential-guessing vector.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrValidation is returned for malformed registration input.
	ErrValidation = errors.New("invalid input")
)

// AuthService orchestrates registration, login, and per-request
// authentication. It holds no state between requests; every call is
// re-derived from the token and the store.
type AuthService struct {
	users  UserRepository
	tokens *Tokens
}

func NewAuthService(users UserRepository, tokens *Tokens) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates a new account with disabled=false and score=0 and
// returns the public record. Duplicate username or email yields
// ErrConflict; the store's unique indexes are the arbiter, so two
// concurrent registrations of one username end with exactly one row.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (UserPublic, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return UserPublic{}, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return UserPublic{}, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if password == "" {
		return UserPublic{}, fmt.Errorf("%w: password is required", ErrValidation)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return UserPublic{}, err
	}

	u, err := s.users.Create(ctx, username, email, hash)
	if err != nil {
		return UserPublic{}, err
	}
	return u.Public(), nil
}

// Login verifies credentials and issues a bearer token bound to the
// username with the configured TTL. Unknown username and wrong password
// fail identically; VerifyPassword runs either way so the two cases do
// not diverge in timing.
func (s *AuthService) Login(ctx context.Context, username, password string) (Token, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			VerifyPassword(password, dummyDigest)
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, err
	}
	if !VerifyPassword(password, u.HashedPassword) {
		return Token{}, ErrInvalidCredentials
	}
	return s.tokens.Issue(u.Username)
}

// Authenticate resolves a presented bearer token to a live user:
// verify signature and expiry, load the subject, reject deactivated
// accounts. Returns ErrInvalidToken when the token is unusable or the
// user no longer exists, ErrAccountDisabled when the token is valid but
// the account was turned off after issuance.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*User, error) {
	subject, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// User deleted after token issuance.
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if u.Disabled {
		return nil, ErrAccountDisabled
	}
	return u, nil
}

// dummyDigest is a throwaway bcrypt digest compared against when the
// username does not exist, so login latency does not reveal whether an
// account exists. The comparison result is discarded.
const dummyDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
