// Package eligibility narrows the roster to the students an operator can adapt.
package eligibility

import (
	"strings"

	"github.com/okian/classpulse/internal/domain/model"
)

// Filter keeps roster entries whose student ID contains term,
// case-insensitively. An empty term keeps everyone. Order is preserved.
func Filter(roster []model.RosterEntry, term string) []model.RosterEntry {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]model.RosterEntry, 0, len(roster))
	for _, r := range roster {
		if Matches(r.StudentID, term) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether id contains the lower-cased term.
func Matches(id, term string) bool {
	return term == "" || strings.Contains(strings.ToLower(id), term)
}

// Join pairs roster entries with their decisions in roster order.
// Students without a decision are not eligible.
func Join(roster []model.RosterEntry, decisions []model.AdaptationDecision) []model.EligibleStudent {
	byStudent := make(map[string]model.AdaptationDecision, len(decisions))
	for _, d := range decisions {
		byStudent[d.StudentID] = d
	}
	out := make([]model.EligibleStudent, 0, len(roster))
	for _, r := range roster {
		d, ok := byStudent[r.StudentID]
		if !ok {
			continue
		}
		out = append(out, model.EligibleStudent{
			StudentID:       r.StudentID,
			AdaptationType:  d.Type,
			AdaptationValue: d.Value,
		})
	}
	return out
}

// Candidate is a roster entry with its optional decision.
type Candidate = model.AdaptationCandidate

// Candidates attaches decisions to the whole roster.
func Candidates(roster []model.RosterEntry, decisions []model.AdaptationDecision) []Candidate {
	byStudent := make(map[string]model.AdaptationDecision, len(decisions))
	for _, d := range decisions {
		byStudent[d.StudentID] = d
	}
	out := make([]Candidate, len(roster))
	for i, r := range roster {
		out[i] = Candidate{Entry: r}
		if d, ok := byStudent[r.StudentID]; ok {
			out[i].Decision = &d
		}
	}
	return out
}

// Apply narrows candidates by the view's search term and, when
// EligibleOnly is set, drops candidates without a decision.
func Apply(view model.ViewState, candidates []Candidate) []Candidate {
	term := strings.ToLower(strings.TrimSpace(view.SearchTerm))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !Matches(c.Entry.StudentID, term) {
			continue
		}
		if view.EligibleOnly && c.Decision == nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Eligible returns the candidates that carry a decision as submission rows.
func Eligible(candidates []Candidate) []model.EligibleStudent {
	out := make([]model.EligibleStudent, 0, len(candidates))
	for _, c := range candidates {
		if c.Decision == nil {
			continue
		}
		out = append(out, model.EligibleStudent{
			StudentID:       c.Entry.StudentID,
			AdaptationType:  c.Decision.Type,
			AdaptationValue: c.Decision.Value,
		})
	}
	return out
}
