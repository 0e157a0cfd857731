// Package model contains domain models passed between layers.
package model

import "strconv"

// TimeLabel returns the label of the 1-based time index n, e.g. "t3".
func TimeLabel(n int) string {
	return "t" + strconv.Itoa(n)
}

// ResponseEntry is one answer of a student. Its position in the owning
// sequence is its time index.
type ResponseEntry struct {
	Correct bool   `json:"correct"`
	TopicID string `json:"topicID"`
}

// ResponseSequence is the ordered answer log of one student.
type ResponseSequence struct {
	StudentID string          `json:"studentID"`
	Responses []ResponseEntry `json:"responses"`
}

// Len returns the number of responses.
func (s ResponseSequence) Len() int { return len(s.Responses) }

// LastTopic returns the topic of the most recent response, or "".
func (s ResponseSequence) LastTopic() string {
	for i := len(s.Responses) - 1; i >= 0; i-- {
		if s.Responses[i].TopicID != "" {
			return s.Responses[i].TopicID
		}
	}
	return ""
}

// AdaptationEvent marks a pedagogical intervention at a time label.
type AdaptationEvent struct {
	Time  string `json:"time"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// AggregatePoint is the class tally at one time label.
type AggregatePoint struct {
	Time           string `json:"time"`
	CorrectCount   int    `json:"correctCount"`
	IncorrectCount int    `json:"incorrectCount"`
	AggregateScore int    `json:"aggregateScore"`
}

// StudentPoint is a single student's 0/1 score at one time label.
type StudentPoint struct {
	Time  string `json:"time"`
	Score int    `json:"score"`
}

// Projection is the extrapolated next point of a series.
type Projection struct {
	Time  string `json:"time"`
	Score int    `json:"score"`
}

// Annotation attaches an adaptation event to an aggregate bucket.
type Annotation struct {
	Time  string `json:"time"`
	Index int    `json:"index"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	Label string `json:"label"`
}

// SkillVector holds a student's mastery per skill.
type SkillVector struct {
	StudentID string             `json:"studentID"`
	Skills    map[string]float64 `json:"skills"`
}

// RosterEntry is a student known to the collaborator.
type RosterEntry struct {
	StudentID         string `json:"studentID"`
	CurrentBloomLevel string `json:"currentBloomLevel,omitempty"`
}
