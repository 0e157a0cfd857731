package model

import (
	"slices"

	"github.com/okian/classpulse/internal/domain/types"
)

// ReconcileRow is one student/skill line of a recommendation sheet.
type ReconcileRow struct {
	StudentID             string           `json:"studentID"`
	SkillID               string           `json:"skillID"`
	ActualValue           types.Difficulty `json:"actualValue"`
	RecommendedDifficulty types.Difficulty `json:"recommendedDifficulty"`
}

// Sheet is the editable table of recommendations for one skill.
type Sheet struct {
	SkillID    string         `json:"skillID"`
	SkillLabel string         `json:"skillLabel"`
	Rows       []ReconcileRow `json:"rows"`
}

// Clone returns a deep copy of s.
func (s Sheet) Clone() Sheet {
	out := s
	out.Rows = slices.Clone(s.Rows)
	return out
}

// ViewState is the presentation state a client round-trips through the API.
type ViewState struct {
	SelectedStudents []string `json:"selectedStudents,omitempty"`
	SearchTerm       string   `json:"searchTerm,omitempty"`
	EligibleOnly     bool     `json:"eligibleOnly,omitempty"`
	Sheet            *Sheet   `json:"sheet,omitempty"`
}

// Toggle adds studentID to the selection, or removes it when present.
// The receiver is not modified.
func (v ViewState) Toggle(studentID string) ViewState {
	out := v
	idx := slices.Index(v.SelectedStudents, studentID)
	if idx >= 0 {
		out.SelectedStudents = slices.Delete(slices.Clone(v.SelectedStudents), idx, idx+1)
		return out
	}
	out.SelectedStudents = append(slices.Clone(v.SelectedStudents), studentID)
	return out
}

// Selected reports whether studentID passes the selection. An empty
// selection selects everyone.
func (v ViewState) Selected(studentID string) bool {
	return len(v.SelectedStudents) == 0 || slices.Contains(v.SelectedStudents, studentID)
}
