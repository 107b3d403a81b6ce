package core

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed books.yaml
var booksYAML []byte

// Book describes one book of the canon.
type Book struct {
	Number   int    `yaml:"number" json:"number"`
	Name     string `yaml:"name" json:"name"`
	Chapters int    `yaml:"chapters" json:"chapters"`
}

var (
	canonOnce   sync.Once
	canonBooks  []Book
	canonByNum  map[int]Book
	canonByName map[string]Book
	canonErr    error
)

func loadCanon() {
	var doc struct {
		Books []Book `yaml:"books"`
	}
	if err := yaml.Unmarshal(booksYAML, &doc); err != nil {
		canonErr = fmt.Errorf("parse embedded books.yaml: %w", err)
		return
	}
	if len(doc.Books) == 0 {
		canonErr = fmt.Errorf("embedded books.yaml has no books")
		return
	}
	canonBooks = doc.Books
	canonByNum = make(map[int]Book, len(doc.Books))
	canonByName = make(map[string]Book, len(doc.Books))
	for _, b := range doc.Books {
		canonByNum[b.Number] = b
		canonByName[strings.ToLower(b.Name)] = b
	}
}

// Books returns the 66 books of the canon in order.
func Books() ([]Book, error) {
	canonOnce.Do(loadCanon)
	return canonBooks, canonErr
}

// BookByNumber resolves a 1-based book number.
func BookByNumber(n int) (Book, bool) {
	canonOnce.Do(loadCanon)
	b, ok := canonByNum[n]
	return b, ok
}

// BookByName resolves a book by name, case-insensitively.
func BookByName(name string) (Book, bool) {
	canonOnce.Do(loadCanon)
	b, ok := canonByName[strings.ToLower(strings.TrimSpace(name))]
	return b, ok
}
