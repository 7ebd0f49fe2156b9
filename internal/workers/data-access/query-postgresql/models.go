// internal/workers/data-access/query-postgresql/models.go
package querypostgresql

import "sailmatch-workers/internal/workers/data-access/query-postgresql/queries"

type Input struct {
	QueryType      string                 `json:"queryType"`
	RegistrationID string                 `json:"registrationId,omitempty"`
	JourneyID      string                 `json:"journeyId,omitempty"`
	UserID         string                 `json:"userId,omitempty"`
	Filters        map[string]interface{} `json:"filters,omitempty"`
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
}

type QueryType = queries.QueryType

// Export constants for external use
var (
	QueryTypeRegistrationDetails  = queries.QueryTypeRegistrationDetails
	QueryTypeJourneyRequirements  = queries.QueryTypeJourneyRequirements
	QueryTypeJourneyRegistrations = queries.QueryTypeJourneyRegistrations
	QueryTypeCrewProfile          = queries.QueryTypeCrewProfile
)
