package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeUserRepo is an in-memory UserRepository enforcing the same
// uniqueness guarantee the Postgres schema does.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, username, email, hashedPassword string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return nil, ErrConflict
		}
	}
	r.nextID++
	u := &User{
		ID:             r.nextID,
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now(),
	}
	r.users[username] = u
	return u, nil
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) AddScore(ctx context.Context, id int64, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			u.Score += delta
			return u.Score, nil
		}
	}
	return 0, ErrUserNotFound
}

func (r *fakeUserRepo) SetDisabled(ctx context.Context, id int64, disabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			u.Disabled = disabled
			return nil
		}
	}
	return ErrUserNotFound
}

func (r *fakeUserRepo) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]LeaderboardEntry, 0, len(r.users))
	for _, u := range r.users {
		if u.Disabled {
			continue
		}
		entries = append(entries, LeaderboardEntry{Username: u.Username, Score: u.Score})
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Score > entries[i].Score {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *fakeUserRepo) delete(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, username)
}

func newTestAuth() (*AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	tokens := NewTokens(testSecret, 30*time.Minute, nil)
	return NewAuthService(repo, tokens), repo
}

func TestRegisterThenLogin(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()

	pub, err := auth.Register(ctx, "alice", "alice@x.com", "p@ss1")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if pub.ID == 0 || pub.Username != "alice" || pub.Email != "alice@x.com" {
		t.Fatalf("unexpected public record: %+v", pub)
	}
	if pub.Disabled || pub.Score != 0 {
		t.Fatalf("new user must start enabled with score 0: %+v", pub)
	}

	tok, err := auth.Login(ctx, "alice", "p@ss1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestRegisterValidation(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()

	cases := []struct {
		name, username, email, password string
	}{
		{"empty username", "", "a@x.com", "pw"},
		{"blank username", "   ", "a@x.com", "pw"},
		{"empty email", "a", "", "pw"},
		{"bad email", "a", "not-an-email", "pw"},
		{"empty password", "a", "a@x.com", ""},
	}
	for _, tc := range cases {
		if _, err := auth.Register(ctx, tc.username, tc.email, tc.password); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: error = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()

	if _, err := auth.Register(ctx, "alice", "alice@x.com", "pw"); err != nil {
		t.Fatalf("first Register error: %v", err)
	}
	if _, err := auth.Register(ctx, "alice", "other@x.com", "pw"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate username error = %v, want ErrConflict", err)
	}
	if _, err := auth.Register(ctx, "bob", "alice@x.com", "pw"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email error = %v, want ErrConflict", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()

	if _, err := auth.Register(ctx, "alice", "alice@x.com", "p@ss1"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	// Wrong password and unknown username must fail identically.
	if _, err := auth.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := auth.Login(ctx, "nobody", "p@ss1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateRoundTrip(t *testing.T) {
	auth, _ := newTestAuth()
	ctx := context.Background()

	if _, err := auth.Register(ctx, "alice", "alice@x.com", "p@ss1"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	tok, err := auth.Login(ctx, "alice", "p@ss1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	u, err := auth.Authenticate(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("authenticated as %q, want alice", u.Username)
	}
}

func TestAuthenticateDisabledUser(t *testing.T) {
	auth, repo := newTestAuth()
	ctx := context.Background()

	pub, err := auth.Register(ctx, "alice", "alice@x.com", "p@ss1")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	tok, err := auth.Login(ctx, "alice", "p@ss1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	// Deactivation after issuance: the token is still valid but the
	// account must be rejected with the distinguishable error.
	if err := repo.SetDisabled(ctx, pub.ID, true); err != nil {
		t.Fatalf("SetDisabled error: %v", err)
	}
	if _, err := auth.Authenticate(ctx, tok.AccessToken); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("disabled account error = %v, want ErrAccountDisabled", err)
	}
}

func TestAuthenticateDeletedUser(t *testing.T) {
	auth, repo := newTestAuth()
	ctx := context.Background()

	if _, err := auth.Register(ctx, "alice", "alice@x.com", "p@ss1"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	tok, err := auth.Login(ctx, "alice", "p@ss1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	repo.delete("alice")
	if _, err := auth.Authenticate(ctx, tok.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("deleted user error = %v, want ErrInvalidToken", err)
	}
}

func TestConcurrentRegistrationSameUsername(t *testing.T) {
	auth, repo := newTestAuth()
	ctx := context.Background()

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := auth.Register(ctx, "alice", "alice@x.com", "p@ss1")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != attempts-1 {
		t.Fatalf("got %d successes and %d conflicts, want 1 and %d", ok, conflicts, attempts-1)
	}
	if len(repo.users) != 1 {
		t.Fatalf("store holds %d rows for alice, want 1", len(repo.users))
	}
}
