// Package repository keeps the last known engine state in memory.
package repository

import (
	"context"
	"time"

	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/normalize"
)

// Snapshot is the outcome of one completed refresh.
type Snapshot struct {
	Sequences   []model.ResponseSequence `json:"sequences"`
	Rejected    []*normalize.RecordError `json:"rejected,omitempty"`
	Vectors     []model.SkillVector      `json:"vectors"`
	TrainStatus string                   `json:"trainStatus,omitempty"`
	RefreshedAt time.Time                `json:"refreshedAt"`
}

// Sequence returns the sequence of studentID.
func (s *Snapshot) Sequence(studentID string) (model.ResponseSequence, bool) {
	for _, seq := range s.Sequences {
		if seq.StudentID == studentID {
			return seq, true
		}
	}
	return model.ResponseSequence{}, false
}

// StudentIDs returns the IDs of all normalized sequences in order.
func (s *Snapshot) StudentIDs() []string {
	out := make([]string, len(s.Sequences))
	for i, seq := range s.Sequences {
		out[i] = seq.StudentID
	}
	return out
}

// Store provides read/write access to the latest snapshot.
type Store interface {
	// Put replaces the latest snapshot.
	Put(ctx context.Context, snap *Snapshot)
	// Latest returns the latest snapshot and whether it is still within its
	// TTL. Returns ErrNotFound before the first Put.
	Latest(ctx context.Context) (*Snapshot, bool, error)
}
