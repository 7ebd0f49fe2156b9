// internal/assessment/scorers.go
package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"sailmatch-workers/internal/ai/gateway"
	"sailmatch-workers/internal/common/config"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/domain"
)

// AI use cases configured in ai.use_cases. Text scoring and vision calls may
// route to different provider chains.
const (
	UseCaseAssessment = "assessment"
	UseCaseVision     = "vision"
)

// AI is the gateway surface the scorers need; satisfied by *gateway.Gateway.
type AI interface {
	Call(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

// ImageFetcher downloads an image URL into a base64 attachment.
type ImageFetcher func(ctx context.Context, url string) (*gateway.ImageAttachment, error)

// Scorer runs the per-type AI scoring. Each method is independently
// fault-tolerant: a gateway failure is returned as an error for the pipeline
// to record, while a parse failure degrades to zero-score defaults.
type Scorer struct {
	ai         AI
	fetchImage ImageFetcher
	cfg        config.AssessmentConfig
	logger     logger.Logger
}

func NewScorer(ai AI, fetchImage ImageFetcher, cfg config.AssessmentConfig, log logger.Logger) *Scorer {
	return &Scorer{
		ai:         ai,
		fetchImage: fetchImage,
		cfg:        cfg,
		logger:     log.WithFields(map[string]interface{}{"component": "assessment-scorer"}),
	}
}

// ScoreSkills batches every skill requirement into one prompt and expects a
// JSON array with one scored object per requirement, in input order.
func (s *Scorer) ScoreSkills(ctx context.Context, requirements []domain.Requirement, profile *domain.Profile) ([]domain.AssessmentResult, error) {
	if len(requirements) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("You are assessing a sailing crew member's skills against a journey owner's requirements.\n\n")
	sb.WriteString("Crew member profile:\n")
	fmt.Fprintf(&sb, "- Experience level: %s\n", domain.ExperienceLevelName(profile.ExperienceLevel))
	fmt.Fprintf(&sb, "- Declared skills: %s\n", strings.Join(profile.Skills, ", "))
	if profile.ProfileDescription != "" {
		fmt.Fprintf(&sb, "- Profile description: %s\n", profile.ProfileDescription)
	}
	sb.WriteString("\nRequirements to score:\n")
	for i, req := range requirements {
		fmt.Fprintf(&sb, "%d. Skill: %s", i, req.SkillName)
		if req.QualificationCriteria != "" {
			fmt.Fprintf(&sb, " — criteria: %s", req.QualificationCriteria)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nScore each requirement 0-10 for how well the crew member meets it.\n")
	sb.WriteString(`Respond with ONLY a JSON array: [{"index": 0, "score": 7, "reasoning": "..."}, ...] with one entry per requirement, in order.`)

	return s.scoreBatch(ctx, requirements, sb.String())
}

// ScoreQuestions batches every question requirement with the crew member's
// submitted answers. A missing answer is scored against an empty string.
func (s *Scorer) ScoreQuestions(ctx context.Context, requirements []domain.Requirement, answers map[string]domain.Answer) ([]domain.AssessmentResult, error) {
	if len(requirements) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("You are assessing a sailing crew member's answers to a journey owner's screening questions.\n\n")
	for i, req := range requirements {
		answer := answers[req.ID].Text
		if answer == "" {
			answer = "(no answer given)"
		}
		fmt.Fprintf(&sb, "%d. Question: %s\n   Answer: %s\n", i, req.QuestionText, answer)
		if req.QualificationCriteria != "" {
			fmt.Fprintf(&sb, "   What the owner is looking for: %s\n", req.QualificationCriteria)
		}
	}
	sb.WriteString("\nScore each answer 0-10 for how well it satisfies the question.\n")
	sb.WriteString(`Respond with ONLY a JSON array: [{"index": 0, "score": 7, "reasoning": "..."}, ...] with one entry per question, in order.`)

	return s.scoreBatch(ctx, requirements, sb.String())
}

// scoreBatch runs one gateway call and maps the response array back onto the
// requirements. Unparseable output or missing entries default to score 0.
func (s *Scorer) scoreBatch(ctx context.Context, requirements []domain.Requirement, prompt string) ([]domain.AssessmentResult, error) {
	resp, err := s.ai.Call(ctx, &gateway.Request{
		UseCase: UseCaseAssessment,
		Prompt:  prompt,
	})
	if err != nil {
		return nil, err
	}

	scores, parseErr := parseScoreArray(resp.Text)
	byIndex := make(map[int]requirementScore, len(scores))
	if parseErr != nil {
		s.logger.Warn("batch score response unparseable, defaulting to zero scores", map[string]interface{}{
			"provider": resp.Provider,
			"error":    parseErr.Error(),
		})
	} else {
		for _, sc := range scores {
			byIndex[sc.Index] = sc
		}
	}

	results := make([]domain.AssessmentResult, 0, len(requirements))
	for i, req := range requirements {
		result := domain.AssessmentResult{RequirementID: req.ID}
		if sc, ok := byIndex[i]; ok {
			result.Score = clampScore(sc.Score)
			result.Reasoning = sc.Reasoning
		} else {
			result.Score = 0
			result.Reasoning = "Assessment response did not include a score for this requirement"
		}
		results = append(results, result)
	}
	return results, nil
}

// passportReading is the stage-1 vision response.
type passportReading struct {
	Valid      bool    `json:"valid"`
	Expired    bool    `json:"expired"`
	HolderName string  `json:"holderName"`
	Confidence float64 `json:"confidence"` // 0-1
}

// photoMatch is the stage-2 vision response.
type photoMatch struct {
	Match      bool    `json:"match"`
	Confidence float64 `json:"confidence"` // 0-1
}

// ScorePassport runs the two-stage vision check. Stage 1 validates the
// passport document; stage 2, when the requirement demands it, compares the
// passport photo to the crew member's profile photo. Photo-stage failure of
// any kind deducts 3 points from the stage-1 score, floored at 0. The result
// carries its own pass verdict: the final score measured against the
// requirement's pass threshold.
func (s *Scorer) ScorePassport(ctx context.Context, req domain.Requirement, profile *domain.Profile) (domain.AssessmentResult, error) {
	result := domain.AssessmentResult{RequirementID: req.ID}
	threshold := s.passportPassThreshold(req)

	if profile.PassportImageURL == "" {
		result.Score = 0
		result.Reasoning = "No passport image on file"
		markPassportVerdict(&result, threshold)
		return result, nil
	}

	passportImage, err := s.fetchImage(ctx, profile.PassportImageURL)
	if err != nil {
		return result, fmt.Errorf("fetch passport image: %w", err)
	}

	reading, err := s.readPassport(ctx, passportImage)
	if err != nil {
		return result, err
	}

	if !reading.Valid || reading.Expired {
		result.Score = 0
		result.Reasoning = fmt.Sprintf("Passport rejected: valid=%t expired=%t", reading.Valid, reading.Expired)
		markPassportVerdict(&result, threshold)
		return result, nil
	}

	result.Score = math.Round(clampConfidence(reading.Confidence) * 10)
	result.Reasoning = fmt.Sprintf("Passport accepted for %s with confidence %.2f", reading.HolderName, reading.Confidence)

	if req.PassportOptions == nil || !req.PassportOptions.RequirePhotoValidation {
		markPassportVerdict(&result, threshold)
		return result, nil
	}

	verified, confidence, note := s.verifyPhoto(ctx, passportImage, profile)
	result.PhotoVerified = &verified
	if confidence >= 0 {
		c := confidence
		result.PhotoConfidence = &c
	}
	if !verified {
		result.Score = math.Max(0, result.Score-3)
	}
	result.Reasoning += "; " + note
	markPassportVerdict(&result, threshold)
	return result, nil
}

// passportPassThreshold resolves the pass mark for one passport requirement:
// the requirement's own pass_confidence_score wins over the configured
// default, which itself defaults to 7.
func (s *Scorer) passportPassThreshold(req domain.Requirement) float64 {
	if req.PassportOptions != nil && req.PassportOptions.PassConfidenceScore > 0 {
		return req.PassportOptions.PassConfidenceScore
	}
	if s.cfg.PassportPassThreshold > 0 {
		return s.cfg.PassportPassThreshold
	}
	return 7
}

func markPassportVerdict(result *domain.AssessmentResult, threshold float64) {
	passed := result.Score >= threshold
	result.Passed = &passed
}

func (s *Scorer) readPassport(ctx context.Context, image *gateway.ImageAttachment) (*passportReading, error) {
	prompt := "Examine this passport image. Respond with ONLY a JSON object: " +
		`{"valid": bool, "expired": bool, "holderName": "string", "confidence": 0.0-1.0}. ` +
		"valid means the document is a genuine, legible passport; confidence is your certainty in the reading."

	resp, err := s.ai.Call(ctx, &gateway.Request{
		UseCase: UseCaseVision,
		Prompt:  prompt,
		Images:  []gateway.ImageAttachment{*image},
	})
	if err != nil {
		return nil, err
	}

	payload := extractJSONPayload(resp.Text, '{', '}')
	var reading passportReading
	if err := json.Unmarshal([]byte(payload), &reading); err != nil {
		// Single-object context: a parse failure here is fatal for the
		// passport stage, there is no per-entry default to fall back on.
		return nil, fmt.Errorf("parse passport reading: %w", err)
	}
	return &reading, nil
}

// verifyPhoto never returns an error: rejection, timeout and missing photo
// all collapse into "not verified" and the caller applies the deduction.
func (s *Scorer) verifyPhoto(ctx context.Context, passportImage *gateway.ImageAttachment, profile *domain.Profile) (verified bool, confidence float64, note string) {
	if profile.PhotoImageURL == "" {
		return false, -1, "photo verification required but no profile photo on file"
	}

	profilePhoto, err := s.fetchImage(ctx, profile.PhotoImageURL)
	if err != nil {
		return false, -1, fmt.Sprintf("photo verification failed: %v", err)
	}

	prompt := "The first image is a passport photo page, the second a profile photo. Do they show the same person? " +
		`Respond with ONLY a JSON object: {"match": bool, "confidence": 0.0-1.0}.`

	resp, err := s.ai.Call(ctx, &gateway.Request{
		UseCase: UseCaseVision,
		Prompt:  prompt,
		Images:  []gateway.ImageAttachment{*passportImage, *profilePhoto},
	})
	if err != nil {
		return false, -1, fmt.Sprintf("photo verification call failed: %v", err)
	}

	payload := extractJSONPayload(resp.Text, '{', '}')
	var match photoMatch
	if err := json.Unmarshal([]byte(payload), &match); err != nil {
		return false, -1, fmt.Sprintf("photo verification response unparseable: %v", err)
	}

	confidence = clampConfidence(match.Confidence)
	if match.Match && confidence >= s.photoMatchThreshold() {
		return true, confidence, fmt.Sprintf("photo verified with confidence %.2f", confidence)
	}
	return false, confidence, fmt.Sprintf("photo match rejected (match=%t confidence=%.2f)", match.Match, confidence)
}

func (s *Scorer) photoMatchThreshold() float64 {
	if s.cfg.PhotoMatchConfidence > 0 {
		return s.cfg.PhotoMatchConfidence
	}
	return 0.70
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
