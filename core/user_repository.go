package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrConflict is returned when a username or email is already taken.
	ErrConflict = errors.New("username or email already registered")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

// User is the persisted account row. The hash never leaves the process;
// handlers respond with the Public projection.
type User struct {
	ID             int64
	Username       string
	Email          string
	HashedPassword string
	Disabled       bool
	Score          int64
	CreatedAt      time.Time
}

// UserPublic is the API projection of a user (no password material).
type UserPublic struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Disabled bool   `json:"disabled"`
	Score    int64  `json:"score"`
}

// Public returns the response-safe projection.
func (u User) Public() UserPublic {
	return UserPublic{ID: u.ID, Username: u.Username, Email: u.Email, Disabled: u.Disabled, Score: u.Score}
}

// LeaderboardEntry is a row of the public score ranking.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

// UserRepository defines persistence operations for users. Score and
// disabled mutations belong to out-of-scope collaborators (gameplay,
// administration) but go through the same store so the uniqueness
// invariant has a single owner.
type UserRepository interface {
	Create(ctx context.Context, username, email, hashedPassword string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	AddScore(ctx context.Context, id int64, delta int64) (int64, error)
	SetDisabled(ctx context.Context, id int64, disabled bool) error
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

// Create inserts a new user with disabled=false and score=0. The unique
// indexes on username and email arbitrate concurrent registrations:
// exactly one insert wins, the loser sees ErrConflict.
func (r *PgUserRepository) Create(ctx context.Context, username, email, hashedPassword string) (*User, error) {
	const q = `INSERT INTO users (username, email, hashed_password) VALUES ($1,$2,$3) RETURNING id, created_at`
	u := User{Username: username, Email: email, HashedPassword: hashedPassword}
	if err := r.db.QueryRow(ctx, q, username, email, hashedPassword).Scan(&u.ID, &u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	const q = `SELECT id, username, email, hashed_password, disabled, score, created_at FROM users WHERE username=$1`
	var u User
	err := r.db.QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.Disabled, &u.Score, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// AddScore atomically adjusts a user's score and returns the new value.
func (r *PgUserRepository) AddScore(ctx context.Context, id int64, delta int64) (int64, error) {
	const q = `UPDATE users SET score = score + $1 WHERE id=$2 RETURNING score`
	var score int64
	if err := r.db.QueryRow(ctx, q, delta, id).Scan(&score); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return score, nil
}

func (r *PgUserRepository) SetDisabled(ctx context.Context, id int64, disabled bool) error {
	const q = `UPDATE users SET disabled=$1 WHERE id=$2`
	tag, err := r.db.Exec(ctx, q, disabled, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Leaderboard returns the top scores, highest first.
func (r *PgUserRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `SELECT username, score FROM users WHERE NOT disabled ORDER BY score DESC, username LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Score); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
