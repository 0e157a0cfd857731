// Package aggregate folds response sequences into per-time-step tallies.
package aggregate

import (
	"github.com/okian/classpulse/internal/domain/model"
)

// Class buckets every response of every student by time label. Each bucket
// independently counts correct and incorrect answers and sums
// +1/-1 into AggregateScore; buckets are not cumulative across time.
//
// Labels are discovered in first-seen order during a single pass and a
// bucket's index is fixed once created, so the output length equals the
// number of distinct labels across all sequences.
func Class(seqs []model.ResponseSequence) []model.AggregatePoint {
	var (
		points []model.AggregatePoint
		index  = make(map[string]int)
	)
	for _, seq := range seqs {
		for i, r := range seq.Responses {
			label := model.TimeLabel(i + 1)
			idx, ok := index[label]
			if !ok {
				idx = len(points)
				index[label] = idx
				points = append(points, model.AggregatePoint{Time: label})
			}
			p := &points[idx]
			if r.Correct {
				p.CorrectCount++
				p.AggregateScore++
			} else {
				p.IncorrectCount++
				p.AggregateScore--
			}
		}
	}
	return points
}

// Student scores one student's own sequence 1 for correct and 0 otherwise.
func Student(seq model.ResponseSequence) []model.StudentPoint {
	points := make([]model.StudentPoint, len(seq.Responses))
	for i, r := range seq.Responses {
		score := 0
		if r.Correct {
			score = 1
		}
		points[i] = model.StudentPoint{Time: model.TimeLabel(i + 1), Score: score}
	}
	return points
}

// Cumulative returns a copy of points whose AggregateScore is the running
// total up to and including each step. Counts are left per-step.
func Cumulative(points []model.AggregatePoint) []model.AggregatePoint {
	out := make([]model.AggregatePoint, len(points))
	total := 0
	for i, p := range points {
		total += p.AggregateScore
		p.AggregateScore = total
		out[i] = p
	}
	return out
}

// Scores extracts the AggregateScore series.
func Scores(points []model.AggregatePoint) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.AggregateScore
	}
	return out
}

// StudentScores extracts the 0/1 series.
func StudentScores(points []model.StudentPoint) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.Score
	}
	return out
}

// Totals returns the summed correct and incorrect counts.
func Totals(points []model.AggregatePoint) (correct, incorrect int) {
	for _, p := range points {
		correct += p.CorrectCount
		incorrect += p.IncorrectCount
	}
	return correct, incorrect
}
