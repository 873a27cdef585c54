// Package catalog defines book records and the store contract every backend implements.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a book ID is unknown.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidID is returned when a book ID is not a UUID.
	ErrInvalidID = errors.New("invalid book id")
	// ErrStoreUnavailable wraps backend failures that are not caller mistakes.
	ErrStoreUnavailable = errors.New("catalog store unavailable")
)

// Book is one catalog record.
type Book struct {
	ID            string     `json:"_id"`
	Title         string     `json:"title"`
	AuthorName    string     `json:"authorName"`
	ISBN          string     `json:"isbn,omitempty"`
	PublishedDate *time.Time `json:"publishedDate,omitempty"`
	Publisher     string     `json:"publisher,omitempty"`
	Genre         string     `json:"genre,omitempty"`
	Price         float64    `json:"price"`
	StockCount    int        `json:"stockCount"`
	Overview      string     `json:"overview,omitempty"`
	PosterURL     string     `json:"posterUrl,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Patch carries the fields of a partial update; nil fields are left unchanged.
type Patch struct {
	Title         *string
	AuthorName    *string
	ISBN          *string
	PublishedDate *time.Time
	Publisher     *string
	Genre         *string
	Price         *float64
	StockCount    *int
	Overview      *string
	PosterURL     *string
}

// Apply returns a copy of book with the patch applied.
func (p Patch) Apply(book Book) Book {
	if p.Title != nil {
		book.Title = *p.Title
	}
	if p.AuthorName != nil {
		book.AuthorName = *p.AuthorName
	}
	if p.ISBN != nil {
		book.ISBN = *p.ISBN
	}
	if p.PublishedDate != nil {
		published := p.PublishedDate.UTC()
		book.PublishedDate = &published
	}
	if p.Publisher != nil {
		book.Publisher = *p.Publisher
	}
	if p.Genre != nil {
		book.Genre = *p.Genre
	}
	if p.Price != nil {
		book.Price = *p.Price
	}
	if p.StockCount != nil {
		book.StockCount = *p.StockCount
	}
	if p.Overview != nil {
		book.Overview = *p.Overview
	}
	if p.PosterURL != nil {
		book.PosterURL = *p.PosterURL
	}
	return book
}

// Filter constrains a query. Text fields are case-insensitive substrings;
// empty fields impose no constraint. Date bounds are inclusive.
type Filter struct {
	TitleContains      string
	AuthorNameContains string
	GenreContains      string
	PublisherContains  string
	PublishedFrom      *time.Time
	PublishedTo        *time.Time
}

// SortField selects the ordering key of a query.
type SortField string

const (
	SortByCreatedAt     SortField = "created_at"
	SortByPublishedDate SortField = "published_date"
)

// Sort orders results by Field; ties are always broken by ID ascending.
// Records without a published date sort last when ordering by published date.
type Sort struct {
	Field      SortField
	Descending bool
}

// Query is the input of Store.Find. Limit <= 0 means unbounded.
type Query struct {
	Filter Filter
	Sort   Sort
	Skip   int
	Limit  int
}

// Store persists and queries book records.
type Store interface {
	Find(ctx context.Context, query Query) ([]Book, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Get(ctx context.Context, id string) (Book, error)
	Create(ctx context.Context, book Book) (Book, error)
	Update(ctx context.Context, id string, patch Patch) (Book, error)
	Delete(ctx context.Context, id string) (Book, error)
}

// NewID returns a fresh book identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidateID reports ErrInvalidID when id is not a canonical UUID.
func ValidateID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return ErrInvalidID
	}
	return nil
}

// CloneBook returns a copy that shares no pointers with in.
func CloneBook(in Book) Book {
	out := in
	if in.PublishedDate != nil {
		published := *in.PublishedDate
		out.PublishedDate = &published
	}
	return out
}
