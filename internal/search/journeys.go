// internal/search/journeys.go

// Package search queries the journey index in Elasticsearch for the chat
// search tool and the data-access worker.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/internal/common/logger"
)

const JourneyIndex = "journeys"

// JourneyQuery is a structured journey search. The bounding box comes from
// gazetteer pre-resolution; free text matches name and description.
type JourneyQuery struct {
	Text        string   `json:"text,omitempty"`
	MinLat      *float64 `json:"minLat,omitempty"`
	MaxLat      *float64 `json:"maxLat,omitempty"`
	MinLon      *float64 `json:"minLon,omitempty"`
	MaxLon      *float64 `json:"maxLon,omitempty"`
	StartAfter  string   `json:"startAfter,omitempty"`  // ISO date
	StartBefore string   `json:"startBefore,omitempty"` // ISO date
	MaxLevel    int      `json:"maxLevel,omitempty"`    // crew's experience level
	Size        int      `json:"size,omitempty"`
}

// JourneyHit is one search result, flattened for tool-result serialization.
type JourneyHit struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	StartLocation string  `json:"startLocation,omitempty"`
	EndLocation   string  `json:"endLocation,omitempty"`
	StartDate     string  `json:"startDate,omitempty"`
	Score         float64 `json:"score"`
}

type JourneySearcher struct {
	client *elasticsearch.Client
	logger logger.Logger
}

func NewJourneySearcher(client *elasticsearch.Client, log logger.Logger) *JourneySearcher {
	return &JourneySearcher{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "journey-search"}),
	}
}

// Search runs the journey query. Results carry real document IDs; the chat
// layer uses those IDs as the ground truth for citation checking.
func (s *JourneySearcher) Search(ctx context.Context, q *JourneyQuery) ([]JourneyHit, int, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, 0, errors.NewSearchQueryFailedError("journey_search", err)
	}

	size := q.Size
	if size <= 0 || size > 25 {
		size = 10
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(JourneyIndex),
		s.client.Search.WithBody(bytes.NewReader(body)),
		s.client.Search.WithSize(size),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, 0, errors.NewSearchTimeoutError("journey_search")
		}
		return nil, 0, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, 0, errors.NewIndexNotFoundError(JourneyIndex)
	}
	if res.IsError() {
		return nil, 0, errors.NewSearchQueryFailedError("journey_search", fmt.Errorf("status %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, errors.NewSearchQueryFailedError("journey_search", err)
	}

	hits := make([]JourneyHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		var hit JourneyHit
		if err := json.Unmarshal(h.Source, &hit); err != nil {
			s.logger.Warn("skipping malformed journey document", map[string]interface{}{
				"documentId": h.ID,
				"error":      err.Error(),
			})
			continue
		}
		hit.ID = h.ID
		hit.Score = h.Score
		hits = append(hits, hit)
	}
	return hits, parsed.Hits.Total.Value, nil
}

func buildQuery(q *JourneyQuery) map[string]interface{} {
	var must, filter []map[string]interface{}

	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"name^2", "description", "startLocation", "endLocation"},
			},
		})
	}

	if q.MinLat != nil && q.MaxLat != nil && q.MinLon != nil && q.MaxLon != nil {
		filter = append(filter, map[string]interface{}{
			"geo_bounding_box": map[string]interface{}{
				"startPoint": map[string]interface{}{
					"top_left":     map[string]float64{"lat": *q.MaxLat, "lon": *q.MinLon},
					"bottom_right": map[string]float64{"lat": *q.MinLat, "lon": *q.MaxLon},
				},
			},
		})
	}

	dateRange := map[string]interface{}{}
	if q.StartAfter != "" {
		dateRange["gte"] = q.StartAfter
	}
	if q.StartBefore != "" {
		dateRange["lte"] = q.StartBefore
	}
	if len(dateRange) > 0 {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"startDate": dateRange},
		})
	}

	if q.MaxLevel > 0 {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{
				"minExperienceLevel": map[string]interface{}{"lte": q.MaxLevel},
			},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	} else {
		boolQuery["must"] = []map[string]interface{}{{"match_all": map[string]interface{}{}}}
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
}
