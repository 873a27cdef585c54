// Package catalogtest holds fixtures and a behavioural contract shared by catalog.Store implementations.
package catalogtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OmDoke/Book-Inventory-Management-System/catalog"
)

// Date returns a UTC midnight timestamp pointer.
func Date(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// Fixtures returns a small catalog with deterministic IDs and creation times.
func Fixtures() []catalog.Book {
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	return []catalog.Book{
		{
			ID:            "00000000-0000-4000-8000-000000000001",
			Title:         "The Night Circus",
			AuthorName:    "Erin Morgenstern",
			PublishedDate: Date(2011, time.September, 13),
			Publisher:     "Doubleday",
			Genre:         "Fiction",
			Price:         14.5,
			StockCount:    3,
			Overview:      "A magical competition between two illusionists.",
			PosterURL:     "https://example.com/night-circus.jpg",
			CreatedAt:     created,
		},
		{
			ID:            "00000000-0000-4000-8000-000000000002",
			Title:         "A Little Life",
			AuthorName:    "Hanya Yanagihara",
			PublishedDate: Date(2015, time.March, 10),
			Publisher:     "Doubleday",
			Genre:         "Literary Fiction",
			Price:         18,
			StockCount:    1,
			Overview:      "Four classmates move to New York.",
			CreatedAt:     created.Add(time.Hour),
		},
		{
			ID:            "00000000-0000-4000-8000-000000000003",
			Title:         "Me Before You",
			AuthorName:    "Jojo Moyes",
			PublishedDate: Date(2016, time.June, 1),
			Publisher:     "Penguin",
			Genre:         "Romance",
			Price:         10,
			StockCount:    7,
			Overview:      "A caregiver and a paralysed man.",
			CreatedAt:     created.Add(2 * time.Hour),
		},
		{
			ID:            "00000000-0000-4000-8000-000000000004",
			Title:         "The Underground Railroad",
			AuthorName:    "Colson Whitehead",
			PublishedDate: Date(2016, time.August, 2),
			Publisher:     "Doubleday",
			Genre:         "Historical Fiction",
			Price:         16,
			StockCount:    2,
			Overview:      "A literal railroad beneath the South.",
			CreatedAt:     created.Add(3 * time.Hour),
		},
		{
			ID:            "00000000-0000-4000-8000-000000000005",
			Title:         "Circe",
			AuthorName:    "Madeline Miller",
			PublishedDate: Date(2018, time.December, 31),
			Publisher:     "Little, Brown",
			Genre:         "Fantasy",
			Price:         15,
			StockCount:    4,
			Overview:      "The witch of Aiaia tells her story.",
			CreatedAt:     created.Add(4 * time.Hour),
		},
		{
			ID:         "00000000-0000-4000-8000-000000000006",
			Title:      "Untitled Manuscript",
			AuthorName: "Anonymous",
			Genre:      "Fiction",
			Overview:   "No publication date recorded.",
			CreatedAt:  created.Add(5 * time.Hour),
		},
	}
}

// Seed inserts fixtures through the store's Create operation.
func Seed(t *testing.T, store catalog.Store, books []catalog.Book) {
	t.Helper()
	for _, book := range books {
		if _, err := store.Create(context.Background(), book); err != nil {
			t.Fatalf("seed %q: %v", book.Title, err)
		}
	}
}

// RunStoreContract exercises the behaviour every catalog.Store must share.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) catalog.Store) {
	t.Helper()

	t.Run("find sorts by published date descending with undated last", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store, Fixtures())

		books, err := store.Find(context.Background(), catalog.Query{
			Sort: catalog.Sort{Field: catalog.SortByPublishedDate, Descending: true},
		})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		want := []string{"Circe", "The Underground Railroad", "Me Before You", "A Little Life", "The Night Circus", "Untitled Manuscript"}
		assertTitles(t, books, want)
	})

	t.Run("find filters case-insensitive substrings", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store, Fixtures())

		books, err := store.Find(context.Background(), catalog.Query{
			Filter: catalog.Filter{GenreContains: "FICTION", PublisherContains: "day"},
			Sort:   catalog.Sort{Field: catalog.SortByPublishedDate, Descending: true},
		})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		assertTitles(t, books, []string{"The Underground Railroad", "A Little Life", "The Night Circus"})
	})

	t.Run("find applies inclusive date bounds and excludes undated", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store, Fixtures())

		endOf2018 := time.Date(2018, time.December, 31, 23, 59, 59, int(time.Second-time.Millisecond), time.UTC)
		books, err := store.Find(context.Background(), catalog.Query{
			Filter: catalog.Filter{PublishedFrom: Date(2016, time.June, 1), PublishedTo: &endOf2018},
			Sort:   catalog.Sort{Field: catalog.SortByPublishedDate, Descending: true},
		})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		assertTitles(t, books, []string{"Circe", "The Underground Railroad", "Me Before You"})
	})

	t.Run("find honours skip and limit", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store, Fixtures())

		books, err := store.Find(context.Background(), catalog.Query{
			Sort:  catalog.Sort{Field: catalog.SortByCreatedAt, Descending: true},
			Skip:  1,
			Limit: 2,
		})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		assertTitles(t, books, []string{"Circe", "The Underground Railroad"})
	})

	t.Run("count matches filter", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store, Fixtures())

		count, err := store.Count(context.Background(), catalog.Filter{GenreContains: "fiction"})
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 4 {
			t.Fatalf("unexpected count: got=%d want=4", count)
		}
	})

	t.Run("create assigns id and timestamps", func(t *testing.T) {
		store := newStore(t)

		created, err := store.Create(context.Background(), catalog.Book{Title: "Dune", AuthorName: "Frank Herbert"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := catalog.ValidateID(created.ID); err != nil {
			t.Fatalf("generated id %q is invalid: %v", created.ID, err)
		}
		if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
			t.Fatalf("timestamps not set: %+v", created)
		}
		loaded, err := store.Get(context.Background(), created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if loaded.Title != "Dune" || !loaded.CreatedAt.Equal(created.CreatedAt) {
			t.Fatalf("unexpected loaded book: %+v", loaded)
		}
	})

	t.Run("update applies patch", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store, Fixtures())

		price := 9.99
		genre := "Classic"
		updated, err := store.Update(context.Background(), Fixtures()[0].ID, catalog.Patch{Price: &price, Genre: &genre})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Price != price || updated.Genre != genre || updated.Title != "The Night Circus" {
			t.Fatalf("unexpected updated book: %+v", updated)
		}
		loaded, err := store.Get(context.Background(), updated.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if loaded.Price != price || loaded.Genre != genre {
			t.Fatalf("update not persisted: %+v", loaded)
		}
	})

	t.Run("unknown ids report not found", func(t *testing.T) {
		store := newStore(t)
		missing := "00000000-0000-4000-8000-0000000000ff"

		if _, err := store.Get(context.Background(), missing); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("get: expected ErrNotFound, got %v", err)
		}
		title := "x"
		if _, err := store.Update(context.Background(), missing, catalog.Patch{Title: &title}); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("update: expected ErrNotFound, got %v", err)
		}
		if _, err := store.Delete(context.Background(), missing); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete removes record", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store, Fixtures())

		deleted, err := store.Delete(context.Background(), Fixtures()[1].ID)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if deleted.Title != "A Little Life" {
			t.Fatalf("unexpected deleted book: %+v", deleted)
		}
		if _, err := store.Get(context.Background(), deleted.ID); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func assertTitles(t *testing.T, books []catalog.Book, want []string) {
	t.Helper()
	if len(books) != len(want) {
		t.Fatalf("unexpected result count: got=%d want=%d (%v)", len(books), len(want), titles(books))
	}
	for i := range want {
		if books[i].Title != want[i] {
			t.Fatalf("unexpected order at %d: got=%v want=%v", i, titles(books), want)
		}
	}
}

func titles(books []catalog.Book) []string {
	out := make([]string, len(books))
	for i := range books {
		out[i] = books[i].Title
	}
	return out
}
