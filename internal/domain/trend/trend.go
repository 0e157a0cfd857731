// Package trend extrapolates the next point of a score series.
package trend

import (
	"errors"

	"github.com/okian/classpulse/internal/domain/model"
)

// ErrInsufficientData is returned when fewer than two points exist.
var ErrInsufficientData = errors.New("insufficient data for projection")

// ProjectScores extrapolates linearly from the last two scores:
// s_n + (s_n - s_{n-1}). The projected label is t{N+1}.
func ProjectScores(scores []int) (model.Projection, error) {
	n := len(scores)
	if n < 2 {
		return model.Projection{}, ErrInsufficientData
	}
	last, prev := scores[n-1], scores[n-2]
	return model.Projection{
		Time:  model.TimeLabel(n + 1),
		Score: last + (last - prev),
	}, nil
}

// Project extrapolates the aggregate score of a class series.
func Project(points []model.AggregatePoint) (model.Projection, error) {
	scores := make([]int, len(points))
	for i, p := range points {
		scores[i] = p.AggregateScore
	}
	return ProjectScores(scores)
}
