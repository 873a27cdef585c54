package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/OmDoke/Book-Inventory-Management-System/answer"
	"github.com/OmDoke/Book-Inventory-Management-System/catalog"
	"github.com/OmDoke/Book-Inventory-Management-System/identity"
)

const defaultMaxRequestBodyBytes = 1 << 20

// Searcher answers natural-language queries.
type Searcher interface {
	Search(ctx context.Context, query string) (answer.FinalAnswer, error)
}

// TokenIssuer signs bearer tokens for authenticated principals.
type TokenIssuer interface {
	Issue(principal identity.Principal) (string, error)
}

// Authenticator checks admin credentials.
type Authenticator interface {
	Configured() bool
	Authenticate(ctx context.Context, username, password string) (identity.Principal, error)
}

// Dependencies are the collaborators the REST surface needs.
type Dependencies struct {
	Store               catalog.Store
	Search              Searcher
	Verifier            identity.Verifier
	Tokens              TokenIssuer
	Authenticator       Authenticator
	Logger              *slog.Logger
	MaxRequestBodyBytes int64
}

type handlers struct {
	store         catalog.Store
	search        Searcher
	verifier      identity.Verifier
	tokens        TokenIssuer
	authenticator Authenticator
	logger        *slog.Logger
	maxBodyBytes  int64
}

func NewRouter(deps Dependencies) http.Handler {
	h := &handlers{
		store:         deps.Store,
		search:        deps.Search,
		verifier:      deps.Verifier,
		tokens:        deps.Tokens,
		authenticator: deps.Authenticator,
		logger:        deps.Logger,
		maxBodyBytes:  deps.MaxRequestBodyBytes,
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = defaultMaxRequestBodyBytes
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", h.handleSearch)
		r.Post("/admin/login", h.handleLogin)
		r.Route("/books", func(r chi.Router) {
			r.Get("/", h.handleListBooks)
			r.Post("/", h.handleCreateBook)
			r.Get("/{id}", h.handleGetBook)
			r.Put("/{id}", h.handleUpdateBook)
			r.Delete("/{id}", h.handleDeleteBook)
		})
	})
	return r
}

// authorize reports whether the request carries an admin principal and
// writes the rejection otherwise.
func (h *handlers) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.verifier == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	if _, err := h.verifier.Verify(r); err != nil {
		h.writeMappedError(w, r, err)
		return false
	}
	return true
}
