package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/OmDoke/Book-Inventory-Management-System/identity"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := h.decodeJSONBody(w, r, &request); err != nil || strings.TrimSpace(request.Username) == "" || request.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if h.authenticator == nil || !h.authenticator.Configured() || h.tokens == nil {
		h.writeMappedError(w, r, identity.ErrNotConfigured)
		return
	}

	principal, err := h.authenticator.Authenticate(r.Context(), request.Username, request.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "admin login rejected", slog.String("username", request.Username))
		h.writeMappedError(w, r, err)
		return
	}
	token, err := h.tokens.Issue(principal)
	if err != nil {
		h.writeMappedError(w, r, fmt.Errorf("issue token: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
