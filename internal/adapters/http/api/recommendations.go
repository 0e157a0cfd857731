package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/reconcile"
)

// RecommendationDependencies defines the interface for the adaptations sheet.
type RecommendationDependencies interface {
	Recommend(ctx context.Context, skillID string, groups []reconcile.Group) (model.Sheet, error)
	Adjust(ctx context.Context, sheet model.Sheet, studentID string, delta float64) (model.Sheet, error)
}

// RecommendationHandler handles recommendation requests.
type RecommendationHandler struct {
	deps RecommendationDependencies
}

// NewRecommendationHandler creates a new recommendation handler.
func NewRecommendationHandler(deps RecommendationDependencies) *RecommendationHandler {
	return &RecommendationHandler{deps: deps}
}

type recommendRequest struct {
	Skill    string            `json:"skill"`
	Students []reconcile.Group `json:"students"`
}

type adjustRequest struct {
	Sheet     *model.Sheet `json:"sheet"`
	StudentID string       `json:"studentID"`
	Delta     *float64     `json:"delta"`
}

func (a adjustRequest) validate() error {
	switch {
	case a.Sheet == nil:
		return errors.New("missing sheet")
	case strings.TrimSpace(a.StudentID) == "":
		return errors.New("missing studentID")
	case a.Delta == nil:
		return errors.New("missing delta")
	}
	return nil
}

// HandleRecommend handles POST /recommendations requests.
func (h *RecommendationHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req recommendRequest
	if err := decode(r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	sheet, err := h.deps.Recommend(r.Context(), strings.TrimSpace(req.Skill), req.Students)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

// HandleAdjust handles POST /recommendations/adjust requests.
func (h *RecommendationHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	const op = "api.adjust"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req adjustRequest
	if err := decode(r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	sheet, err := h.deps.Adjust(r.Context(), *req.Sheet, req.StudentID, *req.Delta)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}
