// internal/workers/matchmaking/assess-registration/models.go
package assessregistration

import "sailmatch-workers/internal/domain"

type Input struct {
	RegistrationID string          `json:"registrationId"`
	// Answers the caller just submitted, handed over directly so the
	// pipeline never races the answer write.
	Answers []domain.Answer `json:"answers,omitempty"`
}

type Output struct {
	RegistrationID   string `json:"registrationId"`
	Skipped          bool   `json:"skipped"`
	Score            int    `json:"score"`
	AutoApproved     bool   `json:"autoApproved"`
	AssessmentFailed bool   `json:"assessmentFailed"`
	AssessedAt       string `json:"assessedAt"` // ISO 8601
}
