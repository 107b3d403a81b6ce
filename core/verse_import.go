package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
)

const importChunkSize = 500

// ParseCorpus decodes a verse corpus JSON document: an array of
// {book_name, book, chapter, verse, text} objects. Rows are validated
// against the canon; a missing book_name is filled in from it. Text is
// sanitized to valid UTF-8 since some source dumps carry broken bytes.
func ParseCorpus(data []byte) ([]Verse, error) {
	if len(data) == 0 {
		return nil, errors.New("corpus is empty")
	}
	var verses []Verse
	if err := json.Unmarshal(data, &verses); err != nil {
		return nil, fmt.Errorf("corpus is not a JSON verse array: %w", err)
	}
	if len(verses) == 0 {
		return nil, errors.New("corpus contains no verses")
	}

	for i := range verses {
		v := &verses[i]
		book, ok := BookByNumber(v.Book)
		if !ok {
			return nil, fmt.Errorf("verse %d: unknown book number %d", i, v.Book)
		}
		if v.Chapter <= 0 || v.Chapter > book.Chapters {
			return nil, fmt.Errorf("verse %d: %s has no chapter %d", i, book.Name, v.Chapter)
		}
		if v.Verse <= 0 {
			return nil, fmt.Errorf("verse %d: non-positive verse number", i)
		}
		v.Text = strings.ToValidUTF8(strings.TrimSpace(v.Text), "")
		if v.Text == "" {
			return nil, fmt.Errorf("verse %d: empty text", i)
		}
		if v.BookName == "" {
			v.BookName = book.Name
		}
	}
	return verses, nil
}

// PopulateVerses loads the corpus file into the verses table in chunks.
// It is idempotent: a non-empty table is left untouched, and re-running
// a partial import skips rows whose location already exists.
func PopulateVerses(ctx context.Context, repo VerseRepository, path string) error {
	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Printf("verse table already contains %d verses, skipping import", count)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read corpus %s: %w", path, err)
	}
	verses, err := ParseCorpus(data)
	if err != nil {
		return err
	}

	log.Printf("populating verse table from %s (%d verses)", path, len(verses))
	var total int64
	for start := 0; start < len(verses); start += importChunkSize {
		end := start + importChunkSize
		if end > len(verses) {
			end = len(verses)
		}
		n, err := repo.BulkInsert(ctx, verses[start:end])
		total += n
		if err != nil {
			return fmt.Errorf("insert verses %d-%d: %w", start, end, err)
		}
		log.Printf("inserted verses %d to %d", start, end)
	}
	log.Printf("verse import done, %d rows inserted", total)
	return nil
}
