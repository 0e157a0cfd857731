package api

import (
	"context"
	"net/http"

	"github.com/okian/classpulse/internal/domain/model"
)

// PerformanceDependencies defines the interface for performance reads and annotations.
type PerformanceDependencies interface {
	ClassPerformance(ctx context.Context, mode string) (model.ClassPerformance, error)
	StudentPerformance(ctx context.Context, search string) ([]model.StudentPerformance, error)
	Annotate(ctx context.Context, ev model.AdaptationEvent) ([]model.Annotation, error)
}

// PerformanceHandler handles performance requests.
type PerformanceHandler struct {
	deps PerformanceDependencies
}

// NewPerformanceHandler creates a new performance handler.
func NewPerformanceHandler(deps PerformanceDependencies) *PerformanceHandler {
	return &PerformanceHandler{deps: deps}
}

// HandleClass handles GET /performance/class?mode=snapshot|cumulative requests.
func (h *PerformanceHandler) HandleClass(w http.ResponseWriter, r *http.Request) {
	const op = "api.performance_class"
	if !allow(w, r, http.MethodGet) {
		return
	}
	perf, err := h.deps.ClassPerformance(r.Context(), r.URL.Query().Get("mode"))
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

// HandleStudents handles GET /performance/students?search= requests.
func (h *PerformanceHandler) HandleStudents(w http.ResponseWriter, r *http.Request) {
	const op = "api.performance_students"
	if !allow(w, r, http.MethodGet) {
		return
	}
	students, err := h.deps.StudentPerformance(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

// HandleAnnotate handles POST /annotations requests.
func (h *PerformanceHandler) HandleAnnotate(w http.ResponseWriter, r *http.Request) {
	const op = "api.annotate"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var ev model.AdaptationEvent
	if err := decode(r, op, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	anns, err := h.deps.Annotate(r.Context(), ev)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, anns)
}
