// Package booksearch implements the structured catalog lookup exposed to the
// model as the searchBooks tool.
package booksearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OmDoke/Book-Inventory-Management-System/answer"
	"github.com/OmDoke/Book-Inventory-Management-System/catalog"
)

// DefaultLimit caps the number of entries in one search result.
const DefaultLimit = 10

// ErrNilStore is returned by New when no catalog store is supplied.
var ErrNilStore = errors.New("booksearch: catalog store is nil")

// YearRange bounds the publication year. Either side may be absent.
type YearRange struct {
	From *int `json:"from,omitempty"`
	To   *int `json:"to,omitempty"`
}

// Filter is the structured search input. Empty strings impose no constraint.
type Filter struct {
	Title         string     `json:"title,omitempty"`
	AuthorName    string     `json:"authorName,omitempty"`
	Genre         string     `json:"genre,omitempty"`
	Publisher     string     `json:"publisher,omitempty"`
	PublishedDate *YearRange `json:"publishedDate,omitempty"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Title) == "" &&
		strings.TrimSpace(f.AuthorName) == "" &&
		strings.TrimSpace(f.Genre) == "" &&
		strings.TrimSpace(f.Publisher) == "" &&
		(f.PublishedDate == nil || (f.PublishedDate.From == nil && f.PublishedDate.To == nil))
}

// Query translates the filter into a catalog query ordered by publication date, newest first.
func (f Filter) Query(limit int) catalog.Query {
	filter := catalog.Filter{
		TitleContains:      strings.TrimSpace(f.Title),
		AuthorNameContains: strings.TrimSpace(f.AuthorName),
		GenreContains:      strings.TrimSpace(f.Genre),
		PublisherContains:  strings.TrimSpace(f.Publisher),
	}
	if f.PublishedDate != nil {
		if f.PublishedDate.From != nil {
			from := YearStart(*f.PublishedDate.From)
			filter.PublishedFrom = &from
		}
		if f.PublishedDate.To != nil {
			to := YearEnd(*f.PublishedDate.To)
			filter.PublishedTo = &to
		}
	}
	return catalog.Query{
		Filter: filter,
		Sort:   catalog.Sort{Field: catalog.SortByPublishedDate, Descending: true},
		Limit:  limit,
	}
}

// YearStart is the first instant of year in UTC.
func YearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// YearEnd is the last representable instant of year in UTC.
func YearEnd(year int) time.Time {
	return YearStart(year+1).Add(-time.Nanosecond)
}

// Searcher runs filters against a catalog store.
type Searcher struct {
	store catalog.Store
	limit int
}

// Option customises a Searcher.
type Option func(*Searcher)

// WithLimit overrides DefaultLimit. Non-positive values are ignored.
func WithLimit(limit int) Option {
	return func(s *Searcher) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func New(store catalog.Store, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	s := &Searcher{store: store, limit: DefaultLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search returns at most the configured limit of matching books as a
// successful answer. No matches is a success with zero results; store
// failures are returned unchanged in meaning.
func (s *Searcher) Search(ctx context.Context, filter Filter) (answer.FinalAnswer, error) {
	books, err := s.store.Find(ctx, filter.Query(s.limit))
	if err != nil {
		return answer.FinalAnswer{}, fmt.Errorf("search books: %w", err)
	}
	entries := make([]answer.Entry, 0, len(books))
	for _, book := range books {
		entries = append(entries, Entry(book))
	}
	return answer.Books(entries), nil
}

// Entry projects a catalog book onto a search result entry.
func Entry(book catalog.Book) answer.Entry {
	entry := answer.Entry{
		Title:      book.Title,
		AuthorName: book.AuthorName,
		Publisher:  book.Publisher,
		Genre:      book.Genre,
		Price:      book.Price,
		Overview:   book.Overview,
		PosterURL:  book.PosterURL,
	}
	if book.PublishedDate != nil {
		entry.PublishedDate = book.PublishedDate.UTC().Format(time.RFC3339)
	}
	return entry
}
