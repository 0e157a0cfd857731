package model

import "github.com/okian/classpulse/internal/domain/types"

// AdaptationType enumerates the adaptations the decision policy can suggest.
type AdaptationType string

// Adaptation types.
const (
	IncreaseBloomLevel AdaptationType = "IncreaseBloomLevel"
	ChangeTopic        AdaptationType = "ChangeTopic"
)

// Valid reports whether t is a known adaptation type.
func (t AdaptationType) Valid() bool {
	return t == IncreaseBloomLevel || t == ChangeTopic
}

// AdaptationDecision is the policy output for one student.
type AdaptationDecision struct {
	StudentID string         `json:"studentID"`
	Type      AdaptationType `json:"type"`
	Value     string         `json:"value"`
}

// EligibleStudent joins a roster entry with its decision.
type EligibleStudent struct {
	StudentID       string         `json:"studentID"`
	AdaptationType  AdaptationType `json:"adaptationType"`
	AdaptationValue string         `json:"adaptationValue"`
}

// RecommendationRequest asks the collaborator for a difficulty.
type RecommendationRequest struct {
	StudentID string  `json:"studentID"`
	SkillID   string  `json:"skill"`
	Threshold float64 `json:"threshold"`
}

// RecommendationResult is the reconciled difficulty of one request.
type RecommendationResult struct {
	StudentID             string           `json:"studentID"`
	SkillID               string           `json:"skill"`
	RecommendedDifficulty types.Difficulty `json:"recommendedDifficulty"`
}

// DifficultyUpdate is one entry of the save-difficulties payload.
type DifficultyUpdate struct {
	StudentID       string  `json:"studentID"`
	IdealDifficulty float64 `json:"idealDifficulty"`
}
