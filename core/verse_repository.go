package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrVerseNotFound is returned when no verse matches the location.
var ErrVerseNotFound = errors.New("verse not found")

// Verse is one row of the fixed scripture corpus. The JSON field names
// double as the corpus file format (book_name/book/chapter/verse/text).
type Verse struct {
	ID       int64  `json:"id"`
	BookName string `json:"book_name"`
	Book     int    `json:"book"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	Text     string `json:"text"`
}

// Ref returns the human-readable verse reference, e.g. "John 3:16".
func (v Verse) Ref() string {
	return fmt.Sprintf("%s %d:%d", v.BookName, v.Chapter, v.Verse)
}

// VerseRepository defines read and bulk-load access to the corpus.
type VerseRepository interface {
	List(ctx context.Context, skip, limit int) ([]Verse, error)
	ListByBook(ctx context.Context, book int) ([]Verse, error)
	ListByChapter(ctx context.Context, book, chapter int) ([]Verse, error)
	Get(ctx context.Context, book, chapter, verse int) (*Verse, error)
	Random(ctx context.Context) (*Verse, error)
	Count(ctx context.Context) (int64, error)
	BulkInsert(ctx context.Context, verses []Verse) (int64, error)
}

// PgVerseRepository implements VerseRepository using pgxpool.
type PgVerseRepository struct {
	db *pgxpool.Pool
}

func NewPgVerseRepository(db *pgxpool.Pool) *PgVerseRepository {
	return &PgVerseRepository{db: db}
}

const verseColumns = `id, book_name, book, chapter, verse, text`

func scanVerses(rows pgx.Rows) ([]Verse, error) {
	defer rows.Close()
	var verses []Verse
	for rows.Next() {
		var v Verse
		if err := rows.Scan(&v.ID, &v.BookName, &v.Book, &v.Chapter, &v.Verse, &v.Text); err != nil {
			return nil, err
		}
		verses = append(verses, v)
	}
	return verses, rows.Err()
}

func (r *PgVerseRepository) List(ctx context.Context, skip, limit int) ([]Verse, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT `+verseColumns+` FROM verses ORDER BY book, chapter, verse LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, err
	}
	return scanVerses(rows)
}

func (r *PgVerseRepository) ListByBook(ctx context.Context, book int) ([]Verse, error) {
	rows, err := r.db.Query(ctx, `SELECT `+verseColumns+` FROM verses WHERE book=$1 ORDER BY chapter, verse`, book)
	if err != nil {
		return nil, err
	}
	return scanVerses(rows)
}

func (r *PgVerseRepository) ListByChapter(ctx context.Context, book, chapter int) ([]Verse, error) {
	rows, err := r.db.Query(ctx, `SELECT `+verseColumns+` FROM verses WHERE book=$1 AND chapter=$2 ORDER BY verse`, book, chapter)
	if err != nil {
		return nil, err
	}
	return scanVerses(rows)
}

func (r *PgVerseRepository) Get(ctx context.Context, book, chapter, verse int) (*Verse, error) {
	const q = `SELECT ` + verseColumns + ` FROM verses WHERE book=$1 AND chapter=$2 AND verse=$3`
	var v Verse
	err := r.db.QueryRow(ctx, q, book, chapter, verse).Scan(&v.ID, &v.BookName, &v.Book, &v.Chapter, &v.Verse, &v.Text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVerseNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Random picks a uniformly random verse for the guessing game.
// TABLESAMPLE is not used because the corpus is small and fixed.
func (r *PgVerseRepository) Random(ctx context.Context) (*Verse, error) {
	const q = `SELECT ` + verseColumns + ` FROM verses ORDER BY random() LIMIT 1`
	var v Verse
	err := r.db.QueryRow(ctx, q).Scan(&v.ID, &v.BookName, &v.Book, &v.Chapter, &v.Verse, &v.Text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVerseNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *PgVerseRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM verses`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// BulkInsert loads a batch of verses, skipping rows whose location is
// already present, and reports how many were inserted.
func (r *PgVerseRepository) BulkInsert(ctx context.Context, verses []Verse) (int64, error) {
	var inserted int64
	for _, v := range verses {
		const q = `INSERT INTO verses (book_name, book, chapter, verse, text) VALUES ($1,$2,$3,$4,$5)
ON CONFLICT ON CONSTRAINT unique_verse_location DO NOTHING`
		tag, err := r.db.Exec(ctx, q, v.BookName, v.Book, v.Chapter, v.Verse, v.Text)
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}
