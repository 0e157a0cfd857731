// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RefreshDependencies
	PerformanceDependencies
	DiagnosisDependencies
	RecommendationDependencies
	AdaptationDependencies
	SubmissionDependencies
}

// Server wires HTTP routes for the engine API.
type Server struct {
	healthHandler         *HealthHandler
	statsHandler          *StatsHandler
	refreshHandler        *RefreshHandler
	performanceHandler    *PerformanceHandler
	diagnosisHandler      *DiagnosisHandler
	recommendationHandler *RecommendationHandler
	adaptationHandler     *AdaptationHandler
	submissionHandler     *SubmissionHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:         NewHealthHandler(),
		statsHandler:          NewStatsHandler(statsProvider),
		refreshHandler:        NewRefreshHandler(deps),
		performanceHandler:    NewPerformanceHandler(deps),
		diagnosisHandler:      NewDiagnosisHandler(deps),
		recommendationHandler: NewRecommendationHandler(deps),
		adaptationHandler:     NewAdaptationHandler(deps),
		submissionHandler:     NewSubmissionHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
	mux.HandleFunc("/performance/class", MetricsMiddleware(s.performanceHandler.HandleClass, "performance_class"))
	mux.HandleFunc("/performance/students", MetricsMiddleware(s.performanceHandler.HandleStudents, "performance_students"))
	mux.HandleFunc("/annotations", MetricsMiddleware(s.performanceHandler.HandleAnnotate, "annotations"))
	mux.HandleFunc("/diagnosis", MetricsMiddleware(s.diagnosisHandler.HandleDiagnosis, "diagnosis"))
	mux.HandleFunc("/recommendations", MetricsMiddleware(s.recommendationHandler.HandleRecommend, "recommendations"))
	mux.HandleFunc("/recommendations/adjust", MetricsMiddleware(s.recommendationHandler.HandleAdjust, "recommendations_adjust"))
	mux.HandleFunc("/adaptations/decide", MetricsMiddleware(s.adaptationHandler.HandleDecide, "adaptations_decide"))
	mux.HandleFunc("/submissions", MetricsMiddleware(s.submissionHandler.HandleSubmit, "submissions"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Snapshot is the last known class performance, attached to upstream failures.
	Snapshot *model.ClassPerformance `json:"snapshot,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps err to its status and logs server-side failures.
func writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Warn(ctx, "request failed",
			logger.String("op", op),
			logger.Int("status", status),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

// allow rejects requests whose method is not method.
func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
	return false
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, op string, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return wrapKind(op, ErrBadRequest, fmt.Errorf("decode body: %w", err))
	}
	return nil
}
