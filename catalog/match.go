package catalog

import (
	"strings"
)

// Matches reports whether book satisfies every constraint of filter.
func (f Filter) Matches(book Book) bool {
	if !containsFold(book.Title, f.TitleContains) ||
		!containsFold(book.AuthorName, f.AuthorNameContains) ||
		!containsFold(book.Genre, f.GenreContains) ||
		!containsFold(book.Publisher, f.PublisherContains) {
		return false
	}
	if f.PublishedFrom == nil && f.PublishedTo == nil {
		return true
	}
	if book.PublishedDate == nil {
		return false
	}
	if f.PublishedFrom != nil && book.PublishedDate.Before(*f.PublishedFrom) {
		return false
	}
	if f.PublishedTo != nil && book.PublishedDate.After(*f.PublishedTo) {
		return false
	}
	return true
}

// Less orders a before b according to s, breaking ties by ID ascending.
func (s Sort) Less(a, b Book) bool {
	switch s.Field {
	case SortByPublishedDate:
		switch {
		case a.PublishedDate == nil && b.PublishedDate == nil:
		case a.PublishedDate == nil:
			return false
		case b.PublishedDate == nil:
			return true
		case !a.PublishedDate.Equal(*b.PublishedDate):
			if s.Descending {
				return a.PublishedDate.After(*b.PublishedDate)
			}
			return a.PublishedDate.Before(*b.PublishedDate)
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if s.Descending {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}

func containsFold(value, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(needle))
}
