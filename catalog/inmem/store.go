package inmem

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/OmDoke/Book-Inventory-Management-System/catalog"
)

// Store keeps books in memory. Reads return copies.
type Store struct {
	mu    sync.RWMutex
	books map[string]catalog.Book
	now   func() time.Time
}

var _ catalog.Store = (*Store)(nil)

func New(initial ...catalog.Book) *Store {
	s := &Store{
		books: make(map[string]catalog.Book, len(initial)),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, book := range initial {
		s.books[book.ID] = catalog.CloneBook(book)
	}
	return s
}

func (s *Store) Find(ctx context.Context, query catalog.Query) ([]catalog.Book, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	s.mu.RLock()
	matched := make([]catalog.Book, 0, len(s.books))
	for _, book := range s.books {
		if query.Filter.Matches(book) {
			matched = append(matched, catalog.CloneBook(book))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b catalog.Book) int {
		switch {
		case query.Sort.Less(a, b):
			return -1
		case query.Sort.Less(b, a):
			return 1
		default:
			return 0
		}
	})

	if query.Skip > 0 {
		if query.Skip >= len(matched) {
			return []catalog.Book{}, nil
		}
		matched = matched[query.Skip:]
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return matched, nil
}

func (s *Store) Count(ctx context.Context, filter catalog.Filter) (int, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, book := range s.books {
		if filter.Matches(book) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Get(ctx context.Context, id string) (catalog.Book, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return catalog.Book{}, ctxErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[id]
	if !ok {
		return catalog.Book{}, fmt.Errorf("%w: id=%q", catalog.ErrNotFound, id)
	}
	return catalog.CloneBook(book), nil
}

func (s *Store) Create(ctx context.Context, book catalog.Book) (catalog.Book, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return catalog.Book{}, ctxErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := catalog.CloneBook(book)
	if next.ID == "" {
		next.ID = catalog.NewID()
	}
	if _, exists := s.books[next.ID]; exists {
		return catalog.Book{}, fmt.Errorf("create book: id %q already exists", next.ID)
	}
	now := s.now()
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	s.books[next.ID] = next
	return catalog.CloneBook(next), nil
}

func (s *Store) Update(ctx context.Context, id string, patch catalog.Patch) (catalog.Book, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return catalog.Book{}, ctxErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.books[id]
	if !ok {
		return catalog.Book{}, fmt.Errorf("%w: id=%q", catalog.ErrNotFound, id)
	}
	next := patch.Apply(catalog.CloneBook(current))
	next.UpdatedAt = s.now()
	s.books[id] = next
	return catalog.CloneBook(next), nil
}

func (s *Store) Delete(ctx context.Context, id string) (catalog.Book, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return catalog.Book{}, ctxErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.books[id]
	if !ok {
		return catalog.Book{}, fmt.Errorf("%w: id=%q", catalog.ErrNotFound, id)
	}
	delete(s.books, id)
	return current, nil
}
