package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// ItemsHandler serves item reads.
type ItemsHandler struct {
	deps Dependencies
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(deps Dependencies) *ItemsHandler {
	return &ItemsHandler{deps: deps}
}

// HandleGetItem handles GET /items/{id}.
func (h *ItemsHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Item(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
