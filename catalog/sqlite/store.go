// Package sqlite implements catalog.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OmDoke/Book-Inventory-Management-System/catalog"
)

//go:embed schema.sql
var schemaSQL string

const bookColumns = `id, title, author_name, isbn, published_at, publisher, genre, price, stock_count, overview, poster_url, created_at, updated_at`

// Store persists books in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ catalog.Store = (*Store)(nil)

// Open creates the database file if needed and applies the schema.
func Open(path string) (*Store, error) {
	inMemory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !inMemory {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("open catalog database: create directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	if inMemory {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open catalog database: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open catalog database: apply schema: %w", err)
	}

	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, query catalog.Query) ([]catalog.Book, error) {
	where, args := filterClause(query.Filter)
	limit := query.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := query.Skip
	if offset < 0 {
		offset = 0
	}

	statement := `SELECT ` + bookColumns + ` FROM books` + where + orderClause(query.Sort) + ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, storeError("find books", err)
	}
	defer rows.Close()

	books := make([]catalog.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, storeError("find books", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("find books", err)
	}
	return books, nil
}

func (s *Store) Count(ctx context.Context, filter catalog.Filter) (int, error) {
	where, args := filterClause(filter)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+where, args...).Scan(&count); err != nil {
		return 0, storeError("count books", err)
	}
	return count, nil
}

func (s *Store) Get(ctx context.Context, id string) (catalog.Book, error) {
	return getBook(ctx, s.db, id)
}

func (s *Store) Create(ctx context.Context, book catalog.Book) (catalog.Book, error) {
	next := catalog.CloneBook(book)
	if next.ID == "" {
		next.ID = catalog.NewID()
	}
	now := s.now()
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	next = truncateTimes(next)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO books (`+bookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bookArgs(next)...,
	)
	if err != nil {
		return catalog.Book{}, storeError("create book", err)
	}
	return next, nil
}

func (s *Store) Update(ctx context.Context, id string, patch catalog.Patch) (catalog.Book, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Book{}, storeError("update book", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getBook(ctx, tx, id)
	if err != nil {
		return catalog.Book{}, err
	}
	next := patch.Apply(current)
	next.UpdatedAt = s.now()
	next = truncateTimes(next)

	_, err = tx.ExecContext(ctx,
		`UPDATE books SET title = ?, author_name = ?, isbn = ?, published_at = ?, publisher = ?, genre = ?,
			price = ?, stock_count = ?, overview = ?, poster_url = ?, updated_at = ?
		WHERE id = ?`,
		next.Title,
		next.AuthorName,
		next.ISBN,
		nullableTime(next.PublishedDate),
		next.Publisher,
		next.Genre,
		next.Price,
		next.StockCount,
		next.Overview,
		next.PosterURL,
		next.UpdatedAt.UnixMilli(),
		id,
	)
	if err != nil {
		return catalog.Book{}, storeError("update book", err)
	}
	if err := tx.Commit(); err != nil {
		return catalog.Book{}, storeError("update book", err)
	}
	return next, nil
}

func (s *Store) Delete(ctx context.Context, id string) (catalog.Book, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Book{}, storeError("delete book", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getBook(ctx, tx, id)
	if err != nil {
		return catalog.Book{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return catalog.Book{}, storeError("delete book", err)
	}
	if err := tx.Commit(); err != nil {
		return catalog.Book{}, storeError("delete book", err)
	}
	return current, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getBook(ctx context.Context, q queryer, id string) (catalog.Book, error) {
	row := q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Book{}, fmt.Errorf("%w: id=%q", catalog.ErrNotFound, id)
	}
	if err != nil {
		return catalog.Book{}, storeError("get book", err)
	}
	return book, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (catalog.Book, error) {
	var (
		book        catalog.Book
		publishedAt sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.AuthorName,
		&book.ISBN,
		&publishedAt,
		&book.Publisher,
		&book.Genre,
		&book.Price,
		&book.StockCount,
		&book.Overview,
		&book.PosterURL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return catalog.Book{}, err
	}
	if publishedAt.Valid {
		published := time.UnixMilli(publishedAt.Int64).UTC()
		book.PublishedDate = &published
	}
	book.CreatedAt = time.UnixMilli(createdAt).UTC()
	book.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return book, nil
}

func bookArgs(book catalog.Book) []any {
	return []any{
		book.ID,
		book.Title,
		book.AuthorName,
		book.ISBN,
		nullableTime(book.PublishedDate),
		book.Publisher,
		book.Genre,
		book.Price,
		book.StockCount,
		book.Overview,
		book.PosterURL,
		book.CreatedAt.UnixMilli(),
		book.UpdatedAt.UnixMilli(),
	}
}

// truncateTimes drops precision the millisecond columns cannot hold, so the
// returned book equals what a later read produces.
func truncateTimes(book catalog.Book) catalog.Book {
	if book.PublishedDate != nil {
		published := book.PublishedDate.UTC().Truncate(time.Millisecond)
		book.PublishedDate = &published
	}
	book.CreatedAt = book.CreatedAt.UTC().Truncate(time.Millisecond)
	book.UpdatedAt = book.UpdatedAt.UTC().Truncate(time.Millisecond)
	return book
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func filterClause(filter catalog.Filter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	addContains := func(column, needle string) {
		if needle == "" {
			return
		}
		conditions = append(conditions, "instr(lower("+column+"), ?) > 0")
		args = append(args, strings.ToLower(needle))
	}
	addContains("title", filter.TitleContains)
	addContains("author_name", filter.AuthorNameContains)
	addContains("genre", filter.GenreContains)
	addContains("publisher", filter.PublisherContains)
	if filter.PublishedFrom != nil {
		conditions = append(conditions, "published_at IS NOT NULL AND published_at >= ?")
		args = append(args, filter.PublishedFrom.UnixMilli())
	}
	if filter.PublishedTo != nil {
		conditions = append(conditions, "published_at IS NOT NULL AND published_at <= ?")
		args = append(args, filter.PublishedTo.UnixMilli())
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func orderClause(sort catalog.Sort) string {
	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}
	switch sort.Field {
	case catalog.SortByPublishedDate:
		return " ORDER BY published_at IS NULL, published_at " + direction + ", id ASC"
	default:
		return " ORDER BY created_at " + direction + ", id ASC"
	}
}

func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, errors.Join(catalog.ErrStoreUnavailable, err))
}
