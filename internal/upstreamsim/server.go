package upstreamsim

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/types"
	"github.com/okian/classpulse/pkg/logger"
)

// Route paths, also used as keys for Calls and Fail.
const (
	PathTrain            = "/train"
	PathStudentActions   = "/student-actions"
	PathDiagnose         = "/diagnose"
	PathRecommend        = "/recommend"
	PathEligibleStudents = "/eligible-students"
	PathTopics           = "/get-topics"
	PathSaveAdaptations  = "/save-adaptations"
	PathSaveDifficulties = "/save-difficulties"
)

// Server serves a fixture over the collaborator's HTTP contract. It is safe
// for concurrent use.
type Server struct {
	mu           sync.Mutex
	fixture      *Fixture
	calls        map[string]int
	failures     map[string]int
	delay        time.Duration
	adaptations  []model.EligibleStudent
	difficulties []model.DifficultyUpdate
	mux          *http.ServeMux
	logger       logger.Logger
}

// NewServer serves f. A nil fixture serves an empty class.
func NewServer(f *Fixture) *Server {
	if f == nil {
		f = &Fixture{TrainStatus: "trained"}
	}
	s := &Server{
		fixture:  f,
		calls:    make(map[string]int),
		failures: make(map[string]int),
		mux:      http.NewServeMux(),
		logger:   logger.Get().Named("upstream-sim"),
	}
	s.mux.HandleFunc("GET "+PathTrain, s.handleTrain)
	s.mux.HandleFunc("GET "+PathStudentActions, s.handleStudentActions)
	s.mux.HandleFunc("POST "+PathDiagnose, s.handleDiagnose)
	s.mux.HandleFunc("POST "+PathRecommend, s.handleRecommend)
	s.mux.HandleFunc("GET "+PathEligibleStudents, s.handleEligibleStudents)
	s.mux.HandleFunc("GET "+PathTopics, s.handleTopics)
	s.mux.HandleFunc("POST "+PathSaveAdaptations, s.handleSaveAdaptations)
	s.mux.HandleFunc("POST "+PathSaveDifficulties, s.handleSaveDifficulties)
	return s
}

// ServeHTTP counts the call, applies injected delay and failures, then routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[r.URL.Path]++
	status := s.failures[r.URL.Path]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// Fail makes path answer with status until cleared with status 0.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// SetDelay delays every response by d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// SetFixture replaces the served data.
func (s *Server) SetFixture(f *Fixture) {
	s.mu.Lock()
	s.fixture = f
	s.mu.Unlock()
}

// Calls returns how often path was requested.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Saved returns copies of everything submitted so far.
func (s *Server) Saved() ([]model.EligibleStudent, []model.DifficultyUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.EligibleStudent(nil), s.adaptations...),
		append([]model.DifficultyUpdate(nil), s.difficulties...)
}

func (s *Server) snapshot() *Fixture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fixture
}

func (s *Server) handleTrain(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": s.snapshot().TrainStatus})
}

type wireResponse struct {
	Correct *bool  `json:"correct,omitempty"`
	TopicID string `json:"topicID"`
}

type wireRecord struct {
	StudentID string         `json:"studentID"`
	Responses []wireResponse `json:"responses"`
}

func (s *Server) handleStudentActions(w http.ResponseWriter, _ *http.Request) {
	f := s.snapshot()
	out := make([]wireRecord, 0, len(f.Students))
	for _, st := range f.Students {
		rec := wireRecord{StudentID: st.ID, Responses: make([]wireResponse, len(st.Responses))}
		for i, r := range st.Responses {
			rec.Responses[i] = wireResponse(r)
		}
		out = append(out, rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StudentID []string `json:"studentID"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f := s.snapshot()
	out := make([]model.SkillVector, 0, len(body.StudentID))
	for _, id := range body.StudentID {
		st, ok := f.student(id)
		if !ok || len(st.Skills) == 0 {
			continue
		}
		out = append(out, model.SkillVector{StudentID: id, Skills: st.Skills})
	}
	writeJSON(w, http.StatusOK, out)
}

type wireRecommendation struct {
	StudentID       string `json:"studentID"`
	Skill           string `json:"skill"`
	Recommendations []struct {
		Difficulty float64 `json:"difficulty"`
	} `json:"recommendations"`
}

// handleRecommend answers a request when the student has the skill. The
// difficulty is the fixture base plus mastery scaled by the threshold.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var reqs []model.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f := s.snapshot()
	out := make([]wireRecommendation, 0, len(reqs))
	for _, req := range reqs {
		st, ok := f.student(req.StudentID)
		if !ok {
			continue
		}
		mastery, ok := st.Skills[req.SkillID]
		if !ok {
			continue
		}
		rec := wireRecommendation{StudentID: req.StudentID, Skill: req.SkillID}
		rec.Recommendations = append(rec.Recommendations, struct {
			Difficulty float64 `json:"difficulty"`
		}{Difficulty: types.Round2(f.Difficulty + mastery*req.Threshold)})
		out = append(out, rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEligibleStudents(w http.ResponseWriter, _ *http.Request) {
	f := s.snapshot()
	out := make([]model.RosterEntry, 0, len(f.Students))
	for _, st := range f.Students {
		if st.Hidden {
			continue
		}
		out = append(out, model.RosterEntry{StudentID: st.ID, CurrentBloomLevel: st.Level})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	topics, ok := s.snapshot().Themes[r.URL.Query().Get("themeName")]
	if !ok {
		http.Error(w, "unknown theme", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, []map[string][]string{{"topics": topics}})
}

func (s *Server) handleSaveAdaptations(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Adaptations []model.EligibleStudent `json:"adaptations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.adaptations = append(s.adaptations, body.Adaptations...)
	s.mu.Unlock()
	s.logger.Info(r.Context(), "saved adaptations", logger.Int("count", len(body.Adaptations)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleSaveDifficulties(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Difficulties []model.DifficultyUpdate `json:"difficulties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.difficulties = append(s.difficulties, body.Difficulties...)
	s.mu.Unlock()
	s.logger.Info(r.Context(), "saved difficulties", logger.Int("count", len(body.Difficulties)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
