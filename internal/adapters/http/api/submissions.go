package api

import (
	"context"
	"net/http"

	"github.com/okian/classpulse/internal/domain/model"
)

// SubmissionDependencies defines the interface for queued submissions.
type SubmissionDependencies interface {
	Submit(ctx context.Context, sub model.Submission) (model.SubmitResult, error)
	SubmitSheet(ctx context.Context, id string, sheet model.Sheet) (model.SubmitResult, error)
}

// SubmissionHandler handles submission requests.
type SubmissionHandler struct {
	deps SubmissionDependencies
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(deps SubmissionDependencies) *SubmissionHandler {
	return &SubmissionHandler{deps: deps}
}

// submitRequest carries either adaptations or the sheet whose available
// difficulties are submitted. ID is an optional idempotency key.
type submitRequest struct {
	ID          string                  `json:"id"`
	Kind        model.SubmissionKind    `json:"kind"`
	Adaptations []model.EligibleStudent `json:"adaptations"`
	Sheet       *model.Sheet            `json:"sheet"`
}

// HandleSubmit handles POST /submissions requests. Accepted batches answer
// 202, duplicates 200 and a full queue 429.
func (h *SubmissionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req submitRequest
	if err := decode(r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	var (
		res model.SubmitResult
		err error
	)
	if req.Kind == model.SubmitDifficulties && req.Sheet != nil {
		res, err = h.deps.SubmitSheet(r.Context(), req.ID, *req.Sheet)
	} else {
		res, err = h.deps.Submit(r.Context(), model.Submission{ID: req.ID, Kind: req.Kind, Adaptations: req.Adaptations})
	}
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}
