// internal/workers/data-access/query-postgresql/queries/sailing.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RegistrationDetails returns one registration joined with its leg, journey
// and crew profile.
func RegistrationDetails(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	registrationID, ok := params["registrationId"].(string)
	if !ok || registrationID == "" {
		return nil, 0, 0, fmt.Errorf("%w: registrationId", ErrMissingParam)
	}

	start := time.Now()
	query := `
		SELECT r.id, r.user_id, r.status,
		       COALESCE(r.ai_match_score, 0), COALESCE(r.ai_match_reasoning, ''),
		       r.auto_approved,
		       l.id, l.name, j.id, j.name,
		       COALESCE(p.display_name, '')
		FROM registrations r
		JOIN legs l ON l.id = r.leg_id
		JOIN journeys j ON j.id = l.journey_id
		LEFT JOIN profiles p ON p.user_id = r.user_id
		WHERE r.id = $1`

	row := db.QueryRowContext(ctx, query, registrationID)
	data := make(map[string]interface{})
	var (
		id, userID, status, reasoning     string
		legID, legName, jID, jName, crew  string
		score                             int
		autoApproved                      bool
	)
	if err := row.Scan(&id, &userID, &status, &score, &reasoning, &autoApproved,
		&legID, &legName, &jID, &jName, &crew); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, time.Since(start).Milliseconds(), nil
		}
		return nil, 0, 0, err
	}

	data["id"] = id
	data["userId"] = userID
	data["status"] = status
	data["aiMatchScore"] = score
	data["aiMatchReasoning"] = reasoning
	data["autoApproved"] = autoApproved
	data["legId"] = legID
	data["legName"] = legName
	data["journeyId"] = jID
	data["journeyName"] = jName
	data["crewName"] = crew

	return data, 1, time.Since(start).Milliseconds(), nil
}

// JourneyRequirements lists a journey's assessment requirements in display
// order.
func JourneyRequirements(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	journeyID, ok := params["journeyId"].(string)
	if !ok || journeyID == "" {
		return nil, 0, 0, fmt.Errorf("%w: journeyId", ErrMissingParam)
	}

	start := time.Now()
	query := `
		SELECT id, type, COALESCE(question_text, ''), COALESCE(skill_name, ''),
		       COALESCE(weight, 0), is_required
		FROM journey_requirements
		WHERE journey_id = $1
		ORDER BY display_order`

	rows, err := db.QueryContext(ctx, query, journeyID)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var (
			id, reqType, question, skill string
			weight                       float64
			isRequired                   bool
		)
		if err := rows.Scan(&id, &reqType, &question, &skill, &weight, &isRequired); err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"id":           id,
			"type":         reqType,
			"questionText": question,
			"skillName":    skill,
			"weight":       weight,
			"isRequired":   isRequired,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	return results, len(results), time.Since(start).Milliseconds(), nil
}

// JourneyRegistrations lists registrations across all legs of a journey,
// optionally filtered by status.
func JourneyRegistrations(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	journeyID, ok := params["journeyId"].(string)
	if !ok || journeyID == "" {
		return nil, 0, 0, fmt.Errorf("%w: journeyId", ErrMissingParam)
	}
	status := ""
	if filters, ok := params["filters"].(map[string]interface{}); ok {
		if s, ok := filters["status"].(string); ok {
			status = s
		}
	}

	start := time.Now()
	query := `
		SELECT r.id, r.user_id, r.status, COALESCE(r.ai_match_score, 0),
		       l.name, COALESCE(p.display_name, '')
		FROM registrations r
		JOIN legs l ON l.id = r.leg_id
		LEFT JOIN profiles p ON p.user_id = r.user_id
		WHERE l.journey_id = $1
		  AND ($2 = '' OR r.status = $2)
		ORDER BY r.created_at DESC`

	rows, err := db.QueryContext(ctx, query, journeyID, status)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var (
			id, userID, regStatus, legName, crew string
			score                                int
		)
		if err := rows.Scan(&id, &userID, &regStatus, &score, &legName, &crew); err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"id":           id,
			"userId":       userID,
			"status":       regStatus,
			"aiMatchScore": score,
			"legName":      legName,
			"crewName":     crew,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	return results, len(results), time.Since(start).Milliseconds(), nil
}

// CrewProfile returns a crew member's sailing profile.
func CrewProfile(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	userID, ok := params["userId"].(string)
	if !ok || userID == "" {
		return nil, 0, 0, fmt.Errorf("%w: userId", ErrMissingParam)
	}

	start := time.Now()
	query := `
		SELECT user_id, COALESCE(display_name, ''),
		       COALESCE(experience_level, 0), COALESCE(bio, ''),
		       ai_consent_given
		FROM profiles
		WHERE user_id = $1`

	row := db.QueryRowContext(ctx, query, userID)
	var (
		id, name, bio   string
		experienceLevel int
		consent         bool
	)
	if err := row.Scan(&id, &name, &experienceLevel, &bio, &consent); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, time.Since(start).Milliseconds(), nil
		}
		return nil, 0, 0, err
	}

	data := map[string]interface{}{
		"userId":          id,
		"displayName":     name,
		"experienceLevel": experienceLevel,
		"bio":             bio,
		"aiConsentGiven":  consent,
	}
	return data, 1, time.Since(start).Milliseconds(), nil
}
