// Package seed loads catalog records from YAML and inserts them into an empty store.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/OmDoke/Book-Inventory-Management-System/catalog"
)

//go:embed books.yaml
var defaultSeed []byte

// ErrInvalidRecord is returned when a seed entry cannot become a catalog book.
var ErrInvalidRecord = errors.New("invalid seed record")

// File is the root document of a seed file.
type File struct {
	Books []Record `yaml:"books"`
}

// Record is one book as written in a seed file. Dates are YYYY-MM-DD.
type Record struct {
	ID            string  `yaml:"id,omitempty"`
	Title         string  `yaml:"title"`
	AuthorName    string  `yaml:"author_name"`
	ISBN          string  `yaml:"isbn,omitempty"`
	PublishedDate string  `yaml:"published_date,omitempty"`
	Publisher     string  `yaml:"publisher,omitempty"`
	Genre         string  `yaml:"genre,omitempty"`
	Price         float64 `yaml:"price"`
	StockCount    int     `yaml:"stock_count"`
	Overview      string  `yaml:"overview,omitempty"`
	PosterURL     string  `yaml:"poster_url,omitempty"`
}

// Load reads and parses a seed file.
func Load(path string) ([]catalog.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Default returns the bundled sample catalog.
func Default() []catalog.Book {
	books, err := Parse(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("bundled seed is invalid: %v", err))
	}
	return books
}

// Parse decodes a seed document.
func Parse(data []byte) ([]catalog.Book, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	books := make([]catalog.Book, 0, len(file.Books))
	var errs []error
	for i, record := range file.Books {
		book, err := record.Book()
		if err != nil {
			errs = append(errs, fmt.Errorf("books[%d]: %w", i, err))
			continue
		}
		books = append(books, book)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return books, nil
}

// Book converts the record into a catalog book.
func (r Record) Book() (catalog.Book, error) {
	if strings.TrimSpace(r.Title) == "" {
		return catalog.Book{}, fmt.Errorf("%w: title is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.AuthorName) == "" {
		return catalog.Book{}, fmt.Errorf("%w: author_name is required", ErrInvalidRecord)
	}
	if r.ID != "" {
		if err := catalog.ValidateID(r.ID); err != nil {
			return catalog.Book{}, fmt.Errorf("%w: id %q: %v", ErrInvalidRecord, r.ID, err)
		}
	}
	if r.Price < 0 || r.StockCount < 0 {
		return catalog.Book{}, fmt.Errorf("%w: price and stock_count must be non-negative", ErrInvalidRecord)
	}

	book := catalog.Book{
		ID:         r.ID,
		Title:      r.Title,
		AuthorName: r.AuthorName,
		ISBN:       r.ISBN,
		Publisher:  r.Publisher,
		Genre:      r.Genre,
		Price:      r.Price,
		StockCount: r.StockCount,
		Overview:   r.Overview,
		PosterURL:  r.PosterURL,
	}
	if r.PublishedDate != "" {
		published, err := time.Parse(time.DateOnly, r.PublishedDate)
		if err != nil {
			return catalog.Book{}, fmt.Errorf("%w: published_date %q: %v", ErrInvalidRecord, r.PublishedDate, err)
		}
		book.PublishedDate = &published
	}
	return book, nil
}

// Apply inserts books when the store is empty and reports how many were inserted.
// A store that already holds records is left untouched.
func Apply(ctx context.Context, store catalog.Store, books []catalog.Book) (int, error) {
	existing, err := store.Count(ctx, catalog.Filter{})
	if err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}
	for i, book := range books {
		if _, err := store.Create(ctx, book); err != nil {
			return i, fmt.Errorf("seed catalog: %q: %w", book.Title, err)
		}
	}
	return len(books), nil
}
