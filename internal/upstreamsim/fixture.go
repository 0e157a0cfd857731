// Package upstreamsim is an in-process fake of the recommendation and
// training service, used for local development and end-to-end tests.
package upstreamsim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Response is one logged answer. A nil Correct is served without the
// field, which the engine treats as a malformed record.
type Response struct {
	Correct *bool  `yaml:"correct,omitempty"`
	TopicID string `yaml:"topic"`
}

// Student is one fixture student.
type Student struct {
	ID        string             `yaml:"id"`
	Level     string             `yaml:"level,omitempty"`
	Responses []Response         `yaml:"responses"`
	Skills    map[string]float64 `yaml:"skills,omitempty"`
	// Hidden students are diagnosed but left out of the roster.
	Hidden bool `yaml:"hidden,omitempty"`
}

// Fixture is the data the simulator serves.
type Fixture struct {
	TrainStatus string              `yaml:"trainStatus"`
	Difficulty  float64             `yaml:"difficulty"`
	Themes      map[string][]string `yaml:"themes"`
	Students    []Student           `yaml:"students"`
}

// LoadFixture reads a YAML fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	b, err := os.ReadFile(path) //nolint:gosec // path is an operator supplied fixture
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(b)
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(b []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if f.TrainStatus == "" {
		f.TrainStatus = "trained"
	}
	return &f, nil
}

// Marshal encodes f as YAML.
func (f *Fixture) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

func (f *Fixture) student(id string) (Student, bool) {
	for _, s := range f.Students {
		if s.ID == id {
			return s, true
		}
	}
	return Student{}, false
}

// Bool returns a pointer to b, for building fixtures in code.
func Bool(b bool) *bool { return &b }
