// Package correlate matches adaptation events to aggregate time buckets.
package correlate

import (
	"github.com/okian/classpulse/internal/domain/model"
)

// Annotate returns one annotation per bucket that an event's time label
// matches, in bucket order. When several events share a label the last one
// in input order wins. Events whose label is outside the series are ignored.
func Annotate(points []model.AggregatePoint, events []model.AdaptationEvent) []model.Annotation {
	if len(points) == 0 || len(events) == 0 {
		return nil
	}
	index := make(map[string]int, len(points))
	for i, p := range points {
		index[p.Time] = i
	}

	byBucket := make(map[int]model.AdaptationEvent)
	for _, ev := range events {
		if i, ok := index[ev.Time]; ok {
			byBucket[i] = ev
		}
	}

	out := make([]model.Annotation, 0, len(byBucket))
	for i, p := range points {
		ev, ok := byBucket[i]
		if !ok {
			continue
		}
		out = append(out, model.Annotation{
			Time:  p.Time,
			Index: i,
			Type:  ev.Type,
			Value: ev.Value,
			Label: Label(ev),
		})
	}
	return out
}

// Label renders the annotation text of an event.
func Label(ev model.AdaptationEvent) string {
	if ev.Value == "" {
		return ev.Type
	}
	return ev.Type + ": " + ev.Value
}

// Annotated reports whether label carries an annotation.
func Annotated(annotations []model.Annotation, label string) (model.Annotation, bool) {
	for _, a := range annotations {
		if a.Time == label {
			return a, true
		}
	}
	return model.Annotation{}, false
}
