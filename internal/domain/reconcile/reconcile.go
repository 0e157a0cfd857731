// Package reconcile merges upstream difficulty recommendations with the
// diagnosis matrix into an editable sheet.
package reconcile

import (
	"fmt"
	"math"

	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/types"
)

// Defaults.
const (
	DefaultThreshold = 0.5
	DefaultMaxDelta  = 1.0
)

// Group is a student together with the skills to ask recommendations for.
type Group struct {
	StudentID string   `json:"studentID"`
	Skills    []string `json:"skills"`
}

// Candidate is what the recommendation service returned for one request.
// Difficulties is ordered by preference. Failed marks a lookup that errored.
type Candidate struct {
	StudentID    string
	SkillID      string
	Difficulties []float64
	Failed       bool
}

// Lookuper resolves a student's actual mastery of a skill.
type Lookuper interface {
	Lookup(studentID, skillID string) (float64, error)
}

type key struct{ student, skill string }

// Requests flattens groups into one request per (student, skill) pair with
// a uniform threshold. Duplicate pairs are requested once.
func Requests(groups []Group, threshold float64) ([]model.RecommendationRequest, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %v: %w", threshold, ErrInvalidThreshold)
	}
	seen := make(map[key]struct{})
	var out []model.RecommendationRequest
	for _, g := range groups {
		for _, skill := range g.Skills {
			k := key{g.StudentID, skill}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, model.RecommendationRequest{StudentID: g.StudentID, SkillID: skill, Threshold: threshold})
		}
	}
	return out, nil
}

// Results pairs every request with the first candidate difficulty.
// Missing, failed, empty or invalid candidates yield "N/A".
func Results(requests []model.RecommendationRequest, candidates []Candidate) []model.RecommendationResult {
	byKey := make(map[key]Candidate, len(candidates))
	for _, c := range candidates {
		k := key{c.StudentID, c.SkillID}
		if _, ok := byKey[k]; !ok {
			byKey[k] = c
		}
	}
	out := make([]model.RecommendationResult, len(requests))
	for i, r := range requests {
		out[i] = model.RecommendationResult{
			StudentID:             r.StudentID,
			SkillID:               r.SkillID,
			RecommendedDifficulty: first(byKey[key{r.StudentID, r.SkillID}]),
		}
	}
	return out
}

func first(c Candidate) types.Difficulty {
	if c.Failed || len(c.Difficulties) == 0 {
		return types.NA()
	}
	d, err := types.Of(c.Difficulties[0])
	if err != nil {
		return types.NA()
	}
	return d
}

// Merge builds the sheet of skillID from the requests for that skill.
// ActualValue comes from actual and is "N/A" when it has no value.
func Merge(skillID, label string, requests []model.RecommendationRequest, candidates []Candidate, actual Lookuper) model.Sheet {
	sheet := model.Sheet{SkillID: skillID, SkillLabel: label, Rows: []model.ReconcileRow{}}
	if label == "" {
		sheet.SkillLabel = skillID
	}
	var forSkill []model.RecommendationRequest
	for _, r := range requests {
		if r.SkillID == skillID {
			forSkill = append(forSkill, r)
		}
	}
	for _, res := range Results(forSkill, candidates) {
		row := model.ReconcileRow{
			StudentID:             res.StudentID,
			SkillID:               res.SkillID,
			RecommendedDifficulty: res.RecommendedDifficulty,
		}
		if actual != nil {
			if v, err := actual.Lookup(res.StudentID, res.SkillID); err == nil {
				if d, err := types.Of(v); err == nil {
					row.ActualValue = d
				}
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// Adjust returns a copy of sheet with delta added to every available
// recommended difficulty of studentID. "N/A" rows are left as they are.
// |delta| must not exceed maxDelta; a non-positive maxDelta uses
// DefaultMaxDelta. Results are floored at zero, so an adjustment followed
// by its inverse round-trips only while the value stays at or above zero:
// 0.05 lowered by 0.1 becomes 0 and raised by 0.1 again becomes 0.1.
func Adjust(sheet model.Sheet, studentID string, delta, maxDelta float64) (model.Sheet, error) {
	if maxDelta <= 0 {
		maxDelta = DefaultMaxDelta
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) || math.Abs(delta) > maxDelta {
		return sheet, fmt.Errorf("delta %v exceeds %v: %w", delta, maxDelta, ErrInvalidDelta)
	}
	out := sheet.Clone()
	found := false
	for i := range out.Rows {
		if out.Rows[i].StudentID != studentID {
			continue
		}
		found = true
		out.Rows[i].RecommendedDifficulty = out.Rows[i].RecommendedDifficulty.Add(delta)
	}
	if !found {
		return sheet, fmt.Errorf("student %q: %w", studentID, ErrStudentNotInSheet)
	}
	return out, nil
}

// Difficulties converts a sheet into the save-difficulties payload,
// skipping "N/A" rows.
func Difficulties(sheet model.Sheet) []model.DifficultyUpdate {
	out := make([]model.DifficultyUpdate, 0, len(sheet.Rows))
	for _, r := range sheet.Rows {
		if v, ok := r.RecommendedDifficulty.Value(); ok {
			out = append(out, model.DifficultyUpdate{StudentID: r.StudentID, IdealDifficulty: v})
		}
	}
	return out
}
