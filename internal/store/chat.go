// internal/store/chat.go
package store

import (
	"context"
	"database/sql"
	"strings"

	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/internal/domain"
)

// RegistrationSummary is the row shape returned to chat tools: enough to
// answer "who applied to my journey" without a second query.
type RegistrationSummary struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	CrewName     string `json:"crewName"`
	LegID        string `json:"legId"`
	LegName      string `json:"legName"`
	Status       string `json:"status"`
	AIMatchScore int    `json:"aiMatchScore"`
	CreatedAt    string `json:"createdAt"`
}

// ListJourneysByOwner backs the owner-tier journey listing tool.
func (s *Store) ListJourneysByOwner(ctx context.Context, ownerID string) ([]domain.Journey, error) {
	query := `
		SELECT id, owner_id, name, COALESCE(description, ''),
		       COALESCE(min_experience_level, 0),
		       COALESCE(auto_approve_enabled, false),
		       COALESCE(auto_approve_threshold, 0)
		FROM journeys
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_journeys_by_owner", err)
	}
	defer rows.Close()

	var journeys []domain.Journey
	for rows.Next() {
		var j domain.Journey
		if err := rows.Scan(
			&j.ID, &j.OwnerID, &j.Name, &j.Description,
			&j.MinExperienceLevel, &j.AutoApproveEnabled, &j.AutoApproveThreshold,
		); err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_journeys_by_owner", err)
		}
		journeys = append(journeys, j)
	}
	return journeys, rows.Err()
}

// ListRegistrationsForJourney backs the owner-tier applicant listing tool.
// statusFilter is optional; empty means all statuses.
func (s *Store) ListRegistrationsForJourney(ctx context.Context, journeyID, statusFilter string) ([]RegistrationSummary, error) {
	query := `
		SELECT r.id, r.user_id, COALESCE(p.display_name, ''),
		       r.leg_id, l.name, r.status,
		       COALESCE(r.ai_match_score, 0), r.created_at::text
		FROM registrations r
		JOIN legs l ON l.id = r.leg_id
		LEFT JOIN profiles p ON p.user_id = r.user_id
		WHERE l.journey_id = $1
		  AND ($2 = '' OR r.status = $2)
		ORDER BY r.created_at DESC`

	rows, err := s.db.Query(ctx, query, journeyID, statusFilter)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_registrations", err)
	}
	defer rows.Close()

	var summaries []RegistrationSummary
	for rows.Next() {
		var rs RegistrationSummary
		if err := rows.Scan(
			&rs.ID, &rs.UserID, &rs.CrewName,
			&rs.LegID, &rs.LegName, &rs.Status,
			&rs.AIMatchScore, &rs.CreatedAt,
		); err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_registrations", err)
		}
		summaries = append(summaries, rs)
	}
	return summaries, rows.Err()
}

// ListRegistrationsForUser backs the crew-tier "my applications" tool.
func (s *Store) ListRegistrationsForUser(ctx context.Context, userID string) ([]RegistrationSummary, error) {
	query := `
		SELECT r.id, r.user_id, '', r.leg_id, l.name, r.status,
		       COALESCE(r.ai_match_score, 0), r.created_at::text
		FROM registrations r
		JOIN legs l ON l.id = r.leg_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_registrations_for_user", err)
	}
	defer rows.Close()

	var summaries []RegistrationSummary
	for rows.Next() {
		var rs RegistrationSummary
		if err := rows.Scan(
			&rs.ID, &rs.UserID, &rs.CrewName, &rs.LegID, &rs.LegName, &rs.Status,
			&rs.AIMatchScore, &rs.CreatedAt,
		); err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_registrations_for_user", err)
		}
		summaries = append(summaries, rs)
	}
	return summaries, rows.Err()
}

// OwnsJourney reports whether ownerID owns the journey the registration
// belongs to. Action tools re-check this at execution time.
func (s *Store) OwnsJourney(ctx context.Context, ownerID, registrationID string) (bool, error) {
	query := `
		SELECT j.owner_id
		FROM registrations r
		JOIN legs l ON l.id = r.leg_id
		JOIN journeys j ON j.id = l.journey_id
		WHERE r.id = $1`

	var actualOwner string
	err := s.db.QueryRow(ctx, query, registrationID).Scan(&actualOwner)
	if err == sql.ErrNoRows {
		return false, errors.NewDataIntegrityError("registration", registrationID)
	}
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("owns_journey", err)
	}
	return actualOwner == ownerID, nil
}

// SetRegistrationStatus performs the approve/reject action tool's write.
func (s *Store) SetRegistrationStatus(ctx context.Context, registrationID, newStatus string) error {
	query := `UPDATE registrations SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := s.db.Exec(ctx, query, registrationID, newStatus)
	if err != nil {
		return errors.NewDatabaseUpsertFailedError("registrations", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseUpsertFailedError("registrations", err)
	}
	if affected == 0 {
		return errors.NewDataIntegrityError("registration", registrationID)
	}
	return nil
}

// GazetteerEntry is a named sailing region with its bounding box, matched
// before the search tool runs so the AI copies coordinates verbatim instead
// of deriving them.
type GazetteerEntry struct {
	Name    string  `json:"name"`
	Aliases string  `json:"aliases"`
	MinLat  float64 `json:"minLat"`
	MaxLat  float64 `json:"maxLat"`
	MinLon  float64 `json:"minLon"`
	MaxLon  float64 `json:"maxLon"`
}

// ListGazetteer returns the full region table. The conversation layer scans
// it against free-text messages; the table is small and static.
func (s *Store) ListGazetteer(ctx context.Context) ([]GazetteerEntry, error) {
	query := `
		SELECT name, COALESCE(aliases, ''), min_lat, max_lat, min_lon, max_lon
		FROM gazetteer
		ORDER BY name`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_gazetteer", err)
	}
	defer rows.Close()

	var entries []GazetteerEntry
	for rows.Next() {
		var e GazetteerEntry
		if err := rows.Scan(&e.Name, &e.Aliases, &e.MinLat, &e.MaxLat, &e.MinLon, &e.MaxLon); err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_gazetteer", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ResolveLocation finds a gazetteer entry by case-insensitive name or alias
// match. Returns nil without error when nothing matches.
func (s *Store) ResolveLocation(ctx context.Context, name string) (*GazetteerEntry, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, nil
	}

	query := `
		SELECT name, COALESCE(aliases, ''), min_lat, max_lat, min_lon, max_lon
		FROM gazetteer
		WHERE LOWER(name) = $1
		   OR $1 = ANY(string_to_array(LOWER(COALESCE(aliases, '')), ','))
		LIMIT 1`

	var entry GazetteerEntry
	err := s.db.QueryRow(ctx, query, normalized).Scan(
		&entry.Name, &entry.Aliases, &entry.MinLat, &entry.MaxLat, &entry.MinLon, &entry.MaxLon,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("resolve_location", err)
	}
	return &entry, nil
}
