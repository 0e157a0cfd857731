package upstreamsim

import (
	"maps"
	"math/rand"
	"slices"

	"github.com/google/uuid"

	"github.com/okian/classpulse/internal/domain/diagnosis"
	"github.com/okian/classpulse/internal/domain/policy"
	"github.com/okian/classpulse/internal/domain/types"
)

// Generation ranges.
const (
	minResponses = 3
	maxResponses = 10
	// Probability of a correct answer for strong, average and weak students.
	strongRate  = 0.8
	averageRate = 0.55
	weakRate    = 0.3
)

// DefaultTheme is the theme Generate fills with topics.
const DefaultTheme = "default"

var generatedTopics = []string{"T1", "T2", "T3", "T4"}

// Generate builds a class of n students. The same seed yields the same
// fixture, student IDs included.
func Generate(n int, seed int64) *Fixture {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // fixture data
	skills := slices.Sorted(maps.Keys(diagnosis.DefaultLabels()))

	f := &Fixture{
		TrainStatus: "trained",
		Difficulty:  0.3,
		Themes:      map[string][]string{DefaultTheme: append([]string(nil), generatedTopics...)},
		Students:    make([]Student, n),
	}
	levels := policy.Levels()
	for i := range f.Students {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			id = uuid.New()
		}
		rate := performerRate(rng)
		st := Student{
			ID:        id.String(),
			Level:     levels[rng.Intn(len(levels)-1)],
			Responses: make([]Response, minResponses+rng.Intn(maxResponses-minResponses+1)),
			Skills:    make(map[string]float64, len(skills)),
		}
		for j := range st.Responses {
			st.Responses[j] = Response{
				Correct: Bool(rng.Float64() < rate),
				TopicID: generatedTopics[rng.Intn(len(generatedTopics))],
			}
		}
		for _, sk := range skills {
			st.Skills[sk] = types.Round2(rate*0.8 + rng.Float64()*0.2)
		}
		f.Students[i] = st
	}
	return f
}

func performerRate(rng *rand.Rand) float64 {
	switch rng.Intn(3) {
	case 0:
		return strongRate
	case 1:
		return averageRate
	default:
		return weakRate
	}
}
