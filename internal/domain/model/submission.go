package model

// SubmissionKind selects the collaborator endpoint a submission goes to.
type SubmissionKind string

// Submission kinds.
const (
	SubmitAdaptations  SubmissionKind = "adaptations"
	SubmitDifficulties SubmissionKind = "difficulties"
)

// Submission is an operator-approved batch waiting for delivery.
type Submission struct {
	ID           string             // idempotency key
	Kind         SubmissionKind     // target endpoint
	Adaptations  []EligibleStudent  // set when Kind is SubmitAdaptations
	Difficulties []DifficultyUpdate // set when Kind is SubmitDifficulties
}

// Size returns the number of entries carried.
func (s Submission) Size() int {
	if s.Kind == SubmitDifficulties {
		return len(s.Difficulties)
	}
	return len(s.Adaptations)
}
