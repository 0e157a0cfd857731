// Package policy decides the next adaptation for a student.
package policy

import (
	"fmt"
	"math/rand"

	"github.com/okian/classpulse/internal/domain/model"
)

// Bloom levels, lowest first.
const (
	Remembering   = "Remembering"
	Understanding = "Understanding"
	Applying      = "Applying"
	Analyzing     = "Analyzing"
	Evaluating    = "Evaluating"
	Creating      = "Creating"
)

// EscalationThreshold is the correct-count a student must exceed to move up
// a Bloom level.
const EscalationThreshold = 2

var levels = []string{Remembering, Understanding, Applying, Analyzing, Evaluating, Creating}

// Levels returns the Bloom taxonomy in ascending order.
func Levels() []string {
	return append([]string(nil), levels...)
}

// NextLevel returns the level above current, clamped at Creating.
// An unknown level also yields Creating.
func NextLevel(current string) string {
	for i, l := range levels {
		if l == current && i+1 < len(levels) {
			return levels[i+1]
		}
	}
	return Creating
}

// Decide returns the adaptation for a student with correctCount correct
// answers whose current topic and Bloom level are given. Above the
// escalation threshold the student moves up a level; otherwise a topic is
// drawn uniformly from topics without currentTopic. rng is only consulted
// for the topic draw.
func Decide(correctCount int, currentTopic, currentLevel string, topics []string, rng *rand.Rand) (model.AdaptationDecision, error) {
	if correctCount > EscalationThreshold {
		return model.AdaptationDecision{Type: model.IncreaseBloomLevel, Value: NextLevel(currentLevel)}, nil
	}

	candidates := Alternatives(topics, currentTopic)
	if len(candidates) == 0 {
		return model.AdaptationDecision{}, fmt.Errorf("topic %q: %w", currentTopic, ErrNoAlternativeTopic)
	}
	if rng == nil {
		return model.AdaptationDecision{}, ErrNilRand
	}
	return model.AdaptationDecision{Type: model.ChangeTopic, Value: candidates[rng.Intn(len(candidates))]}, nil
}

// Alternatives returns topics without current and without duplicates,
// keeping their order.
func Alternatives(topics []string, current string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t == current || t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// CorrectCount counts correct answers among the last window responses.
// A window of zero or less covers the whole sequence.
func CorrectCount(seq model.ResponseSequence, window int) int {
	responses := seq.Responses
	if window > 0 && window < len(responses) {
		responses = responses[len(responses)-window:]
	}
	n := 0
	for _, r := range responses {
		if r.Correct {
			n++
		}
	}
	return n
}

// Input is what DecideAll needs about one student.
type Input struct {
	Sequence     model.ResponseSequence
	CurrentLevel string
}

// Outcome pairs a student's decision with the error that prevented one.
type Outcome struct {
	StudentID string                    `json:"studentID"`
	Decision  *model.AdaptationDecision `json:"decision,omitempty"`
	Err       error                     `json:"-"`
}

// DecideAll runs Decide for every input in order. A failure for one
// student is reported in its Outcome and does not stop the others.
func DecideAll(inputs []Input, window int, topics []string, rng *rand.Rand) []Outcome {
	out := make([]Outcome, len(inputs))
	for i, in := range inputs {
		d, err := Decide(CorrectCount(in.Sequence, window), in.Sequence.LastTopic(), in.CurrentLevel, topics, rng)
		o := Outcome{StudentID: in.Sequence.StudentID, Err: err}
		if err == nil {
			d.StudentID = in.Sequence.StudentID
			o.Decision = &d
		}
		out[i] = o
	}
	return out
}

// Decisions returns the successful decisions of outcomes.
func Decisions(outcomes []Outcome) []model.AdaptationDecision {
	out := make([]model.AdaptationDecision, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Decision != nil {
			out = append(out, *o.Decision)
		}
	}
	return out
}
