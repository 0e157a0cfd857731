package api

import (
	"context"
	"net/http"

	"github.com/okian/classpulse/internal/domain/model"
)

// DiagnosisDependencies defines the interface for the skills matrix.
type DiagnosisDependencies interface {
	Diagnosis(ctx context.Context, view model.ViewState, toggle string) (model.DiagnosisView, error)
}

// DiagnosisHandler handles diagnosis requests.
type DiagnosisHandler struct {
	deps DiagnosisDependencies
}

// NewDiagnosisHandler creates a new diagnosis handler.
func NewDiagnosisHandler(deps DiagnosisDependencies) *DiagnosisHandler {
	return &DiagnosisHandler{deps: deps}
}

type diagnosisRequest struct {
	View   model.ViewState `json:"view"`
	Toggle string          `json:"toggle,omitempty"`
}

// HandleDiagnosis handles POST /diagnosis requests. The view carries the
// current selection; toggle flips one student before the rows are built.
func (h *DiagnosisHandler) HandleDiagnosis(w http.ResponseWriter, r *http.Request) {
	const op = "api.diagnosis"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req diagnosisRequest
	if err := decode(r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	view, err := h.deps.Diagnosis(r.Context(), req.View, req.Toggle)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
