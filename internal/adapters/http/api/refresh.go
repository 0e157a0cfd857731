package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/classpulse/internal/adapters/upstream"
	"github.com/okian/classpulse/internal/domain/model"
)

// RefreshDependencies defines the interface for the refresh pipeline.
type RefreshDependencies interface {
	Refresh(ctx context.Context) (model.RefreshResult, error)
	ClassPerformance(ctx context.Context, mode string) (model.ClassPerformance, error)
}

// RefreshHandler handles refresh requests.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandleRefresh handles POST /refresh requests. An upstream failure answers
// 502 with the last known class performance attached when there is one.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh"
	if !allow(w, r, http.MethodPost) {
		return
	}
	res, err := h.deps.Refresh(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	if !errors.Is(err, upstream.ErrUpstream) {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	body := errorResponse{Code: "upstream_error", Message: err.Error()}
	if prior, perr := h.deps.ClassPerformance(r.Context(), ""); perr == nil {
		prior.Stale = true
		body.Snapshot = &prior
	}
	writeJSON(w, http.StatusBadGateway, body)
}
