// Package diagnosis holds the student-by-skill mastery matrix.
package diagnosis

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/okian/classpulse/internal/domain/model"
)

// DefaultLabels maps the known skill IDs to their display names.
func DefaultLabels() map[string]string {
	return map[string]string{
		"66ab571cc92cc90278b759a1": "Plastic",
		"66ab5734c92cc90278b759a2": "Detergents",
		"66ab575fc92cc90278b759a3": "Bees",
	}
}

// Skill is one column of the matrix.
type Skill = model.Skill

// Row is one student's mastery values aligned with Matrix.Skills.
type Row = model.MatrixRow

// Matrix is safe for concurrent use. Replace swaps the contents atomically.
type Matrix struct {
	mu       sync.RWMutex
	labels   map[string]string
	skills   []string
	students []string
	values   map[string]map[string]float64
}

// Option configures a Matrix.
type Option func(*Matrix)

// WithLabels overrides the skill label mapping.
func WithLabels(labels map[string]string) Option {
	return func(m *Matrix) {
		m.labels = make(map[string]string, len(labels))
		for k, v := range labels {
			m.labels[k] = v
		}
	}
}

// New builds an empty matrix.
func New(opts ...Option) *Matrix {
	m := &Matrix{
		labels: DefaultLabels(),
		values: make(map[string]map[string]float64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Build validates vectors and returns a populated matrix.
func Build(vectors []model.SkillVector, opts ...Option) (*Matrix, error) {
	m := New(opts...)
	if err := m.Replace(vectors); err != nil {
		return nil, err
	}
	return m, nil
}

// Replace validates vectors and swaps them in. On error the matrix is left
// unchanged. Students and skills keep first-seen order; skills inside one
// vector are ordered by ID since the wire form is an object.
func (m *Matrix) Replace(vectors []model.SkillVector) error {
	var (
		skills   []string
		students []string
		seen     = make(map[string]struct{})
		values   = make(map[string]map[string]float64, len(vectors))
	)
	for _, v := range vectors {
		if strings.TrimSpace(v.StudentID) == "" {
			return fmt.Errorf("diagnosis: %w", ErrEmptyStudentID)
		}
		row, ok := values[v.StudentID]
		if !ok {
			row = make(map[string]float64, len(v.Skills))
			values[v.StudentID] = row
			students = append(students, v.StudentID)
		}
		for _, id := range slices.Sorted(maps.Keys(v.Skills)) {
			val := v.Skills[id]
			if val < 0 || math.IsNaN(val) || math.IsInf(val, 0) {
				return fmt.Errorf("diagnosis: student %q skill %q: %w", v.StudentID, id, ErrNegativeMastery)
			}
			row[id] = val
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				skills = append(skills, id)
			}
		}
	}

	m.mu.Lock()
	m.skills = skills
	m.students = students
	m.values = values
	m.mu.Unlock()
	return nil
}

// Lookup returns the mastery of studentID for skillID.
func (m *Matrix) Lookup(studentID, skillID string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.values[studentID]
	if !ok {
		return 0, fmt.Errorf("student %q: %w", studentID, ErrNotFound)
	}
	v, ok := row[skillID]
	if !ok {
		return 0, fmt.Errorf("student %q skill %q: %w", studentID, skillID, ErrNotFound)
	}
	return v, nil
}

// Label returns the display name of skillID, or the raw ID when unmapped.
func (m *Matrix) Label(skillID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.label(skillID)
}

func (m *Matrix) label(skillID string) string {
	if l, ok := m.labels[skillID]; ok && l != "" {
		return l
	}
	return skillID
}

// Skills returns the skill axis in first-seen order.
func (m *Matrix) Skills() []Skill {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Skill, len(m.skills))
	for i, id := range m.skills {
		out[i] = Skill{ID: id, Label: m.label(id)}
	}
	return out
}

// Students returns the diagnosed students in first-seen order.
func (m *Matrix) Students() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.students...)
}

// StudentSkills returns the skill IDs a student has a value for, in axis order.
func (m *Matrix) StudentSkills(studentID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row := m.values[studentID]
	var out []string
	for _, id := range m.skills {
		if _, ok := row[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Rows returns the matrix rows for the students selected by view.
// An empty selection returns every student.
func (m *Matrix) Rows(view model.ViewState) []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Row, 0, len(m.students))
	for _, id := range m.students {
		if !view.Selected(id) {
			continue
		}
		row := Row{StudentID: id, Values: make([]*float64, len(m.skills))}
		for i, skill := range m.skills {
			if v, ok := m.values[id][skill]; ok {
				row.Values[i] = &v
			}
		}
		out = append(out, row)
	}
	return out
}

// Len returns the number of diagnosed students.
func (m *Matrix) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students)
}
