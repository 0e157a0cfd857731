package model

import "time"

// RecordIssue reports a response log excluded from aggregation.
type RecordIssue struct {
	StudentID string `json:"studentID"`
	Position  int    `json:"position,omitempty"`
	Reason    string `json:"reason"`
}

// ClassPerformance is the class-level series with its projection and annotations.
type ClassPerformance struct {
	Mode           string           `json:"mode"`
	Points         []AggregatePoint `json:"points"`
	Projection     *Projection      `json:"projection,omitempty"`
	CorrectTotal   int              `json:"correctTotal"`
	IncorrectTotal int              `json:"incorrectTotal"`
	Annotations    []Annotation     `json:"annotations"`
	Rejected       []RecordIssue    `json:"rejected"`
	RefreshedAt    time.Time        `json:"refreshedAt"`
	Stale          bool             `json:"stale"`
}

// StudentPerformance is one student's 0/1 series and projection.
type StudentPerformance struct {
	StudentID  string         `json:"studentID"`
	Points     []StudentPoint `json:"points"`
	Projection *Projection    `json:"projection,omitempty"`
}

// Skill is one column of the diagnosis matrix.
type Skill struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// MatrixRow is one student's mastery values aligned with the skill axis.
// A nil entry means the student has no value for that skill.
type MatrixRow struct {
	StudentID string     `json:"studentID"`
	Values    []*float64 `json:"values"`
}

// DiagnosisView is the matrix restricted to a view's selection.
type DiagnosisView struct {
	Skills []Skill     `json:"skills"`
	Rows   []MatrixRow `json:"rows"`
	View   ViewState   `json:"view"`
}

// AdaptationCandidate is a roster entry with its optional decision.
type AdaptationCandidate struct {
	Entry    RosterEntry         `json:"entry"`
	Decision *AdaptationDecision `json:"decision,omitempty"`
	Reason   string              `json:"reason,omitempty"`
}

// DecisionView lists the roster with decisions for the operator.
type DecisionView struct {
	ThemeName  string                `json:"themeName"`
	Topics     []string              `json:"topics"`
	Candidates []AdaptationCandidate `json:"candidates"`
	Eligible   []EligibleStudent     `json:"eligible"`
	View       ViewState             `json:"view"`
}

// SubmitResult acknowledges an accepted submission.
type SubmitResult struct {
	ID        string         `json:"id"`
	Kind      SubmissionKind `json:"kind"`
	Entries   int            `json:"entries"`
	Duplicate bool           `json:"duplicate"`
}

// RefreshResult summarises a completed refresh.
type RefreshResult struct {
	TrainStatus string        `json:"trainStatus,omitempty"`
	Students    int           `json:"students"`
	Responses   int           `json:"responses"`
	Rejected    []RecordIssue `json:"rejected"`
	Diagnosed   int           `json:"diagnosed"`
	RefreshedAt time.Time     `json:"refreshedAt"`
	Shared      bool          `json:"shared"`
}
