package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/OmDoke/Book-Inventory-Management-System/catalog"
	"github.com/OmDoke/Book-Inventory-Management-System/validation"
)

const (
	defaultPage     = 1
	defaultPageSize = 12
	maxPageSize     = 100
)

type bookListResponse struct {
	Data        []catalog.Book `json:"data"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	TotalBooks  int            `json:"totalBooks"`
}

func (h *handlers) handleListBooks(w http.ResponseWriter, r *http.Request) {
	page := positiveQueryInt(r, "page", defaultPage)
	limit := positiveQueryInt(r, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	total, err := h.store.Count(r.Context(), catalog.Filter{})
	if err != nil {
		h.writeMappedError(w, r, fmt.Errorf("count books: %w", err))
		return
	}
	books, err := h.store.Find(r.Context(), catalog.Query{
		Sort:  catalog.Sort{Field: catalog.SortByCreatedAt, Descending: true},
		Skip:  (page - 1) * limit,
		Limit: limit,
	})
	if err != nil {
		h.writeMappedError(w, r, fmt.Errorf("list books: %w", err))
		return
	}
	if books == nil {
		books = []catalog.Book{}
	}

	writeJSON(w, http.StatusOK, bookListResponse{
		Data:        books,
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
		TotalBooks:  total,
	})
}

func (h *handlers) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathBookID(w, r)
	if !ok {
		return
	}
	book, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *handlers) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := h.decodeJSONBody(w, r, &payload); err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	book, err := validation.Book(payload)
	if err != nil {
		h.writeValidation(w, r, err)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	created, err := h.store.Create(r.Context(), book)
	if err != nil {
		h.writeMappedError(w, r, fmt.Errorf("create book: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handlers) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathBookID(w, r)
	if !ok {
		return
	}
	var payload map[string]any
	if err := h.decodeJSONBody(w, r, &payload); err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	patch, err := validation.Patch(payload)
	if err != nil {
		h.writeValidation(w, r, err)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	updated, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handlers) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathBookID(w, r)
	if !ok {
		return
	}
	if !h.authorize(w, r) {
		return
	}
	if _, err := h.store.Delete(r.Context(), id); err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Book deleted successfully")
}

func (h *handlers) pathBookID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := catalog.ValidateID(id); err != nil {
		h.writeMappedError(w, r, err)
		return "", false
	}
	return id, true
}

func (h *handlers) writeValidation(w http.ResponseWriter, r *http.Request, err error) {
	var errs validation.Errors
	if errors.As(err, &errs) {
		writeValidationErrors(w, errs)
		return
	}
	h.writeMappedError(w, r, err)
}

func positiveQueryInt(r *http.Request, key string, fallback int) int {
	parsed, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
