// internal/workers/data-access/query-postgresql/queries/registry.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

type QueryType string

const (
	QueryTypeRegistrationDetails  QueryType = "registration_details"
	QueryTypeJourneyRequirements  QueryType = "journey_requirements"
	QueryTypeJourneyRegistrations QueryType = "journey_registrations"
	QueryTypeCrewProfile          QueryType = "crew_profile"
)

// QueryFunc returns: data, rowCount, executionTime (ms), error
type QueryFunc func(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error)

var Registry = map[QueryType]QueryFunc{
	QueryTypeRegistrationDetails:  RegistrationDetails,
	QueryTypeJourneyRequirements:  JourneyRequirements,
	QueryTypeJourneyRegistrations: JourneyRegistrations,
	QueryTypeCrewProfile:          CrewProfile,
}

func Execute(ctx context.Context, db *sql.DB, queryType QueryType, params map[string]interface{}) (interface{}, int, int64, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}
	return fn(ctx, db, params)
}
