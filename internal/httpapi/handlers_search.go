package httpapi

import (
	"errors"
	"net/http"

	"github.com/OmDoke/Book-Inventory-Management-System/search"
)

const messageQueryRequired = "Query is required in request body"

type searchRequest struct {
	Query *string `json:"query"`
}

func (h *handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	var request searchRequest
	if err := h.decodeJSONBody(w, r, &request); err != nil || request.Query == nil {
		writeMessage(w, http.StatusBadRequest, messageQueryRequired)
		return
	}
	if h.search == nil {
		h.writeMappedError(w, r, errors.New("search is not configured"))
		return
	}

	final, err := h.search.Search(r.Context(), *request.Query)
	if err != nil {
		if errors.Is(err, search.ErrQueryRequired) {
			writeMessage(w, http.StatusBadRequest, messageQueryRequired)
			return
		}
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, final)
}
