package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
)

// ElasticsearchQuery defines the structure of a query request
type ElasticsearchQuery struct {
	Index      string
	QueryType  string
	Filters    map[string]interface{}
	JourneyID  string
	Pagination struct {
		From int
		Size int
	}
}

// BuildQuery builds an Elasticsearch search request based on query type and filters
func BuildQuery(esClient *elasticsearch.Client, eq ElasticsearchQuery) (*esapi.SearchRequest, error) {
	if eq.Index == "" {
		return nil, ErrMissingIndex
	}

	var queryBody map[string]interface{}

	switch eq.QueryType {
	case "journey_search":
		queryBody = buildJourneySearchQuery(eq)
	case "related_journeys":
		queryBody = buildRelatedJourneysQuery(eq)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, eq.QueryType)
	}

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index:  []string{eq.Index},
		Body:   strings.NewReader(string(body)),
		From:   &eq.Pagination.From,
		Size:   &eq.Pagination.Size,
		Pretty: true,
	}

	return &req, nil
}

// buildJourneySearchQuery builds the main journey search query dynamically
func buildJourneySearchQuery(eq ElasticsearchQuery) map[string]interface{} {
	boolQuery := make(map[string]interface{})
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	// Keyword search
	if keywords, ok := eq.Filters["keywords"].(string); ok && keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  keywords,
				"fields": []string{"name^3", "description^2", "startLocation", "endLocation"},
				"type":   "best_fields",
			},
		})
	}

	// Bounding box filter. Coordinates come from the gazetteer, already
	// resolved; this never geocodes.
	if box, ok := eq.Filters["boundingBox"].(map[string]interface{}); ok {
		minLat, okMinLat := toFloat(box["minLat"])
		maxLat, okMaxLat := toFloat(box["maxLat"])
		minLon, okMinLon := toFloat(box["minLon"])
		maxLon, okMaxLon := toFloat(box["maxLon"])
		if okMinLat && okMaxLat && okMinLon && okMaxLon {
			filterClauses = append(filterClauses, map[string]interface{}{
				"geo_bounding_box": map[string]interface{}{
					"startPoint": map[string]interface{}{
						"top_left":     map[string]float64{"lat": maxLat, "lon": minLon},
						"bottom_right": map[string]float64{"lat": minLat, "lon": maxLon},
					},
				},
			})
		}
	}

	// Departure date window
	dateRange := map[string]interface{}{}
	if after, ok := eq.Filters["startAfter"].(string); ok && after != "" {
		dateRange["gte"] = after
	}
	if before, ok := eq.Filters["startBefore"].(string); ok && before != "" {
		dateRange["lte"] = before
	}
	if len(dateRange) > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{"startDate": dateRange},
		})
	}

	// Only journeys the crew member's experience level qualifies for
	if level, ok := toFloat(eq.Filters["maxExperienceLevel"]); ok && level > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"minExperienceLevel": map[string]interface{}{"lte": level},
			},
		})
	}

	// Default match_all if no keyword
	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery["must"] = mustClauses
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}

	// Sorting logic
	if sortBy, ok := eq.Filters["sortBy"].(string); ok {
		switch sortBy {
		case "startDate":
			query["sort"] = []map[string]interface{}{{"startDate": "asc"}}
		case "name":
			query["sort"] = []map[string]interface{}{{"name": "asc"}}
		}
	}

	return query
}

// buildRelatedJourneysQuery builds "similar journeys" query
func buildRelatedJourneysQuery(eq ElasticsearchQuery) map[string]interface{} {
	if eq.JourneyID == "" {
		return map[string]interface{}{
			"query": map[string]interface{}{
				"match_none": map[string]interface{}{},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"more_like_this": map[string]interface{}{
				"fields": []string{"name", "description", "startLocation", "endLocation"},
				"like": []map[string]interface{}{
					{"_index": eq.Index, "_id": eq.JourneyID},
				},
				"min_term_freq":   1,
				"max_query_terms": 12,
				"min_doc_freq":    1,
				"min_word_length": 3,
			},
		},
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
