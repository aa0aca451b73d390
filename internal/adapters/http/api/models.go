package api

import (
	"context"
	"net/http"

	"github.com/okian/simuq/internal/domain/simulation"
)

// ModelDependencies lists model catalogs.
type ModelDependencies interface {
	Models(ctx context.Context) ([]simulation.Description, error)
}

// ModelsHandler handles model catalog requests.
type ModelsHandler struct {
	deps ModelDependencies
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(deps ModelDependencies) *ModelsHandler {
	return &ModelsHandler{deps: deps}
}

// HandleListModels handles GET /models requests.
func (h *ModelsHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_models"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	descs, err := h.deps.Models(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, modelsResponse{Models: descs})
}
