// internal/store/assessment.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/internal/domain"
)

// AssessmentContext is everything the pipeline needs to assess one
// registration, loaded in one round of queries.
type AssessmentContext struct {
	Registration *domain.Registration
	Leg          *domain.Leg
	Journey      *domain.Journey
	Requirements []domain.Requirement
	Profile      *domain.Profile
	Owner        *domain.Profile
}

// LoadAssessmentContext resolves the registration's full object graph. A
// missing row anywhere in the chain is a data integrity error: the
// registration cannot be assessed and must not be silently approved.
func (s *Store) LoadAssessmentContext(ctx context.Context, registrationID string) (*AssessmentContext, error) {
	reg, err := s.GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	leg, err := s.GetLeg(ctx, reg.LegID)
	if err != nil {
		return nil, err
	}

	journey, err := s.GetJourney(ctx, leg.JourneyID)
	if err != nil {
		return nil, err
	}

	requirements, err := s.GetRequirements(ctx, journey.ID)
	if err != nil {
		return nil, err
	}

	profile, err := s.GetProfile(ctx, reg.UserID)
	if err != nil {
		return nil, err
	}

	owner, err := s.GetProfile(ctx, journey.OwnerID)
	if err != nil {
		return nil, err
	}

	return &AssessmentContext{
		Registration: reg,
		Leg:          leg,
		Journey:      journey,
		Requirements: requirements,
		Profile:      profile,
		Owner:        owner,
	}, nil
}

func (s *Store) GetRegistration(ctx context.Context, id string) (*domain.Registration, error) {
	query := `
		SELECT id, user_id, leg_id, status,
		       COALESCE(ai_match_score, 0), COALESCE(ai_match_reasoning, ''),
		       COALESCE(auto_approved, false), COALESCE(answers_snapshot, ''),
		       created_at::text, updated_at::text
		FROM registrations
		WHERE id = $1`

	var reg domain.Registration
	err := s.db.QueryRow(ctx, query, id).Scan(
		&reg.ID, &reg.UserID, &reg.LegID, &reg.Status,
		&reg.AIMatchScore, &reg.AIMatchReasoning, &reg.AutoApproved, &reg.AnswersSnapshot,
		&reg.CreatedAt, &reg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewDataIntegrityError("registration", id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_registration", err)
	}
	return &reg, nil
}

func (s *Store) GetLeg(ctx context.Context, id string) (*domain.Leg, error) {
	query := `
		SELECT id, journey_id, name, start_location, end_location,
		       start_date::text, end_date::text,
		       COALESCE(start_lat, 0), COALESCE(start_lon, 0),
		       COALESCE(min_experience_level, 0), COALESCE(crew_needed, 0)
		FROM legs
		WHERE id = $1`

	var leg domain.Leg
	err := s.db.QueryRow(ctx, query, id).Scan(
		&leg.ID, &leg.JourneyID, &leg.Name, &leg.StartLocation, &leg.EndLocation,
		&leg.StartDate, &leg.EndDate,
		&leg.StartLat, &leg.StartLon,
		&leg.MinExperienceLevel, &leg.CrewNeeded,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewDataIntegrityError("leg", id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_leg", err)
	}
	return &leg, nil
}

func (s *Store) GetJourney(ctx context.Context, id string) (*domain.Journey, error) {
	query := `
		SELECT id, owner_id, name, COALESCE(description, ''),
		       COALESCE(risk_levels, '{}'),
		       COALESCE(min_experience_level, 0),
		       COALESCE(auto_approve_enabled, false),
		       COALESCE(auto_approve_threshold, 0)
		FROM journeys
		WHERE id = $1`

	var journey domain.Journey
	err := s.db.QueryRow(ctx, query, id).Scan(
		&journey.ID, &journey.OwnerID, &journey.Name, &journey.Description,
		pq.Array(&journey.RiskLevels),
		&journey.MinExperienceLevel,
		&journey.AutoApproveEnabled,
		&journey.AutoApproveThreshold,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewDataIntegrityError("journey", id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_journey", err)
	}
	return &journey, nil
}

// GetRequirements returns the journey's requirements in owner-defined order.
// passport_options is a jsonb column and may be NULL.
func (s *Store) GetRequirements(ctx context.Context, journeyID string) ([]domain.Requirement, error) {
	query := `
		SELECT id, journey_id, type,
		       COALESCE(question_text, ''), COALESCE(skill_name, ''),
		       COALESCE(qualification_criteria, ''),
		       COALESCE(weight, 1), COALESCE(is_required, false),
		       COALESCE(display_order, 0), passport_options
		FROM journey_requirements
		WHERE journey_id = $1
		ORDER BY display_order, id`

	rows, err := s.db.Query(ctx, query, journeyID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_requirements", err)
	}
	defer rows.Close()

	var requirements []domain.Requirement
	for rows.Next() {
		var req domain.Requirement
		var passportOptions []byte
		if err := rows.Scan(
			&req.ID, &req.JourneyID, &req.Type,
			&req.QuestionText, &req.SkillName,
			&req.QualificationCriteria,
			&req.Weight, &req.IsRequired,
			&req.Order, &passportOptions,
		); err != nil {
			return nil, errors.NewQueryExecutionFailedError("get_requirements", err)
		}
		if len(passportOptions) > 0 {
			var opts domain.PassportOptions
			if err := json.Unmarshal(passportOptions, &opts); err == nil {
				req.PassportOptions = &opts
			}
		}
		requirements = append(requirements, req)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_requirements", err)
	}
	return requirements, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT user_id, COALESCE(display_name, ''), COALESCE(email, ''),
		       COALESCE(phone, ''),
		       COALESCE(experience_level, 0), COALESCE(risk_comfort::text, ''),
		       COALESCE(skills, '{}'),
		       COALESCE(passport_image_url, ''), COALESCE(photo_image_url, ''),
		       COALESCE(ai_consent_given, false),
		       COALESCE(profile_description, '')
		FROM profiles
		WHERE user_id = $1`

	var profile domain.Profile
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&profile.UserID, &profile.DisplayName, &profile.Email,
		&profile.Phone,
		&profile.ExperienceLevel, &profile.RiskComfortRaw,
		pq.Array(&profile.Skills),
		&profile.PassportImageURL, &profile.PhotoImageURL,
		&profile.AIConsentGiven,
		&profile.ProfileDescription,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewDataIntegrityError("profile", userID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_profile", err)
	}
	return &profile, nil
}

// GetAnswers returns the user's answers for the given requirements. Missing
// answers are simply absent from the map; scorers treat them as empty.
func (s *Store) GetAnswers(ctx context.Context, userID string, requirementIDs []string) (map[string]domain.Answer, error) {
	if len(requirementIDs) == 0 {
		return map[string]domain.Answer{}, nil
	}

	query := `
		SELECT requirement_id, user_id, COALESCE(answer_text, '')
		FROM requirement_answers
		WHERE user_id = $1 AND requirement_id = ANY($2)`

	rows, err := s.db.Query(ctx, query, userID, pq.Array(requirementIDs))
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_answers", err)
	}
	defer rows.Close()

	answers := make(map[string]domain.Answer)
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.RequirementID, &a.UserID, &a.Text); err != nil {
			return nil, errors.NewQueryExecutionFailedError("get_answers", err)
		}
		answers[a.RequirementID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_answers", err)
	}
	return answers, nil
}

// UpsertAssessmentResult writes one per-requirement result row. Re-running an
// assessment overwrites the previous score instead of duplicating rows.
func (s *Store) UpsertAssessmentResult(ctx context.Context, r *domain.AssessmentResult) error {
	query := `
		INSERT INTO assessment_results
			(registration_id, requirement_id, score, reasoning, passed,
			 photo_verified, photo_confidence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (registration_id, requirement_id)
		DO UPDATE SET
			score = EXCLUDED.score,
			reasoning = EXCLUDED.reasoning,
			passed = EXCLUDED.passed,
			photo_verified = EXCLUDED.photo_verified,
			photo_confidence = EXCLUDED.photo_confidence,
			updated_at = NOW()`

	_, err := s.db.Exec(ctx, query,
		r.RegistrationID, r.RequirementID, r.Score, r.Reasoning, r.Passed,
		r.PhotoVerified, r.PhotoConfidence,
	)
	if err != nil {
		return errors.NewDatabaseUpsertFailedError("assessment_results", err)
	}
	return nil
}

// SetResultsPassed bulk-writes the final decision outcome onto every result
// row of the registration, exactly once per run.
// SaveAnswersSnapshot records the canonical answers JSON a completed
// assessment scored, enabling the identical-resubmission short circuit.
func (s *Store) SaveAnswersSnapshot(ctx context.Context, registrationID, snapshot string) error {
	query := `UPDATE registrations SET answers_snapshot = $2, updated_at = NOW() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, registrationID, snapshot); err != nil {
		return errors.NewDatabaseUpsertFailedError("registrations", err)
	}
	return nil
}

// SetResultsPassed stamps the overall decision onto result rows that carry no
// per-requirement verdict of their own. Passport rows are upserted with passed
// already set and keep it.
func (s *Store) SetResultsPassed(ctx context.Context, registrationID string, passed bool) error {
	query := `UPDATE assessment_results SET passed = $2, updated_at = NOW() WHERE registration_id = $1 AND passed IS NULL`
	if _, err := s.db.Exec(ctx, query, registrationID, passed); err != nil {
		return errors.NewDatabaseUpsertFailedError("assessment_results", err)
	}
	return nil
}

// UpdateRegistrationAssessment persists the aggregate outcome. The status
// transition is guarded: only a still-pending registration may be moved, so a
// crew member who cancelled mid-assessment is never auto-approved.
func (s *Store) UpdateRegistrationAssessment(ctx context.Context, registrationID string, score int, reasoning, newStatus string, autoApproved bool) error {
	query := `
		UPDATE registrations
		SET ai_match_score = $2,
		    ai_match_reasoning = $3,
		    status = $4,
		    auto_approved = $5,
		    updated_at = NOW()
		WHERE id = $1 AND status = $6`

	result, err := s.db.Exec(ctx, query,
		registrationID, score, reasoning, newStatus, autoApproved,
		domain.StatusPendingApproval,
	)
	if err != nil {
		return errors.NewDatabaseUpsertFailedError("registrations", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseUpsertFailedError("registrations", err)
	}
	if affected == 0 {
		return errors.NewBusinessRuleError(
			fmt.Sprintf("registration %s is no longer pending", registrationID),
			"status changed while the assessment was running",
		)
	}
	return nil
}

// RecordAssessmentScoreOnly persists score and reasoning without touching the
// status, used when the aggregate is below the auto-approve threshold.
func (s *Store) RecordAssessmentScoreOnly(ctx context.Context, registrationID string, score int, reasoning string) error {
	query := `
		UPDATE registrations
		SET ai_match_score = $2, ai_match_reasoning = $3, updated_at = NOW()
		WHERE id = $1`

	if _, err := s.db.Exec(ctx, query, registrationID, score, reasoning); err != nil {
		return errors.NewDatabaseUpsertFailedError("registrations", err)
	}
	return nil
}
