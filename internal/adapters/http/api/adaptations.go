package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/classpulse/internal/domain/model"
)

// AdaptationDependencies defines the interface for adaptation decisions.
type AdaptationDependencies interface {
	DecideAdaptations(ctx context.Context, themeName string, window int, view model.ViewState) (model.DecisionView, error)
}

// AdaptationHandler handles adaptation decision requests.
type AdaptationHandler struct {
	deps AdaptationDependencies
}

// NewAdaptationHandler creates a new adaptation handler.
func NewAdaptationHandler(deps AdaptationDependencies) *AdaptationHandler {
	return &AdaptationHandler{deps: deps}
}

type decideRequest struct {
	ThemeName string          `json:"themeName"`
	Window    int             `json:"window"`
	View      model.ViewState `json:"view"`
}

// HandleDecide handles POST /adaptations/decide requests.
func (h *AdaptationHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	const op = "api.decide"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req decideRequest
	if err := decode(r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Window < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("window must not be negative")))
		return
	}
	view, err := h.deps.DecideAdaptations(r.Context(), req.ThemeName, req.Window, req.View)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
