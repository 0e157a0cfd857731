// Package normalize validates externally supplied response logs and turns
// them into time-indexed response sequences.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/classpulse/internal/domain/model"
)

// ErrMalformedRecord marks a student record with a bad shape.
var ErrMalformedRecord = errors.New("malformed record")

// RawResponse is a response entry as received. Correct is kept raw so a
// missing or non-boolean value can be reported instead of failing the
// whole payload.
type RawResponse struct {
	Correct json.RawMessage `json:"correct"`
	TopicID string          `json:"topicID"`
}

// RawRecord is one student's log as received.
type RawRecord struct {
	StudentID string        `json:"studentID"`
	Responses []RawResponse `json:"responses"`
}

// RecordError describes why a record was excluded.
type RecordError struct {
	StudentID string `json:"studentID"`
	Position  int    `json:"position,omitempty"` // 1-based entry position, 0 for the record itself
	Reason    string `json:"reason"`
}

func (e *RecordError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("%s: student %q entry %s: %s", ErrMalformedRecord, e.StudentID, model.TimeLabel(e.Position), e.Reason)
	}
	return fmt.Sprintf("%s: student %q: %s", ErrMalformedRecord, e.StudentID, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedRecord.
func (e *RecordError) Unwrap() error { return ErrMalformedRecord }

// Issue converts e into its reporting shape.
func (e *RecordError) Issue() model.RecordIssue {
	return model.RecordIssue{StudentID: e.StudentID, Position: e.Position, Reason: e.Reason}
}

// Issues converts every rejection. The result is never nil.
func Issues(errs []*RecordError) []model.RecordIssue {
	out := make([]model.RecordIssue, len(errs))
	for i, e := range errs {
		out[i] = e.Issue()
	}
	return out
}

// Result is the outcome of a normalization pass.
type Result struct {
	Sequences []model.ResponseSequence `json:"sequences"`
	Rejected  []*RecordError           `json:"rejected,omitempty"`
}

// Err joins every rejection, or returns nil when all records were valid.
func (r Result) Err() error {
	if len(r.Rejected) == 0 {
		return nil
	}
	errs := make([]error, len(r.Rejected))
	for i, e := range r.Rejected {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// TotalResponses counts the entries across all accepted sequences.
func (r Result) TotalResponses() int {
	n := 0
	for _, s := range r.Sequences {
		n += len(s.Responses)
	}
	return n
}

// Records normalizes records in input order. A record is excluded as a
// whole when its student ID is empty or repeated, or when any entry lacks a
// boolean correct field.
func Records(records []RawRecord) Result {
	var res Result
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.StudentID)
		if id == "" {
			res.Rejected = append(res.Rejected, &RecordError{Reason: "missing studentID"})
			continue
		}
		if _, dup := seen[id]; dup {
			res.Rejected = append(res.Rejected, &RecordError{StudentID: id, Reason: "duplicate studentID"})
			continue
		}
		seen[id] = struct{}{}

		seq, rerr := sequence(id, rec.Responses)
		if rerr != nil {
			res.Rejected = append(res.Rejected, rerr)
			continue
		}
		res.Sequences = append(res.Sequences, seq)
	}
	return res
}

// Map normalizes an unordered studentID -> responses mapping. Students are
// processed in ascending ID order so the result is deterministic.
func Map(logs map[string][]RawResponse) Result {
	ids := make([]string, 0, len(logs))
	for id := range logs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	records := make([]RawRecord, len(ids))
	for i, id := range ids {
		records[i] = RawRecord{StudentID: id, Responses: logs[id]}
	}
	return Records(records)
}

func sequence(studentID string, raw []RawResponse) (model.ResponseSequence, *RecordError) {
	seq := model.ResponseSequence{StudentID: studentID, Responses: make([]model.ResponseEntry, len(raw))}
	for i, r := range raw {
		correct, ok := parseBool(r.Correct)
		if !ok {
			reason := "correct must be a boolean"
			if isMissing(r.Correct) {
				reason = "missing correct"
			}
			return model.ResponseSequence{}, &RecordError{StudentID: studentID, Position: i + 1, Reason: reason}
		}
		seq.Responses[i] = model.ResponseEntry{Correct: correct, TopicID: r.TopicID}
	}
	return seq, nil
}

func isMissing(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

func parseBool(b json.RawMessage) (bool, bool) {
	switch string(bytes.TrimSpace(b)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}
