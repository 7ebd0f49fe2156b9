package queryelasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sailmatch-workers/internal/common/logger"
)

func createTestConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}

func newTestHandler(t *testing.T, handlerFunc http.HandlerFunc) (*Handler, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handlerFunc)
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewHandler(createTestConfig(), client, logger.NewTestLogger(t)), server
}

func journeyHits(hits ...map[string]interface{}) string {
	body := map[string]interface{}{
		"hits": map[string]interface{}{
			"total":     map[string]interface{}{"value": len(hits)},
			"max_score": 1.0,
			"hits":      hits,
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestExecuteJourneySearch(t *testing.T) {
	var captured map[string]interface{}
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		json.NewDecoder(r.Body).Decode(&captured)
		io.WriteString(w, journeyHits(
			map[string]interface{}{
				"_id": "j-1",
				"_source": map[string]interface{}{
					"name":      "Biscay Crossing",
					"startDate": "2026-09-15",
				},
			},
		))
	})

	output, err := h.Execute(context.Background(), &Input{
		IndexName: "journeys",
		QueryType: "journey_search",
		Filters: map[string]interface{}{
			"keywords": "biscay",
			"boundingBox": map[string]interface{}{
				"minLat": 43.2, "maxLat": 48.0, "minLon": -10.0, "maxLon": -1.0,
			},
		},
		Pagination: Pagination{From: 0, Size: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), output.TotalHits)
	require.Len(t, output.Data, 1)
	assert.Equal(t, "j-1", output.Data[0]["id"])

	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filters := boolQuery["filter"].([]interface{})
	require.Len(t, filters, 1)
	_, hasGeo := filters[0].(map[string]interface{})["geo_bounding_box"]
	assert.True(t, hasGeo)
}

func TestExecuteRelatedJourneys(t *testing.T) {
	var captured map[string]interface{}
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		json.NewDecoder(r.Body).Decode(&captured)
		io.WriteString(w, journeyHits())
	})

	_, err := h.Execute(context.Background(), &Input{
		IndexName: "journeys",
		QueryType: "related_journeys",
		Filters:   map[string]interface{}{},
		JourneyID: "j-1",
	})
	require.NoError(t, err)
	_, hasMLT := captured["query"].(map[string]interface{})["more_like_this"]
	assert.True(t, hasMLT)
}

func TestExecuteUnknownQueryType(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		io.WriteString(w, journeyHits())
	})

	_, err := h.Execute(context.Background(), &Input{
		IndexName: "journeys",
		QueryType: "nonsense",
		Filters:   map[string]interface{}{},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSearchQueryFailed))
}

func TestExecuteMissingIndex(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		io.WriteString(w, journeyHits())
	})

	_, err := h.Execute(context.Background(), &Input{
		QueryType: "journey_search",
		Filters:   map[string]interface{}{},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexNotFound))
}

func TestExecuteNilInput(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := h.Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestMapErrorToCode(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})

	assert.Equal(t, "INDEX_NOT_FOUND", h.mapErrorToCode(ErrIndexNotFound))
	assert.Equal(t, "SEARCH_TIMEOUT", h.mapErrorToCode(ErrSearchTimeout))
	assert.Equal(t, "SEARCH_QUERY_FAILED", h.mapErrorToCode(ErrSearchQueryFailed))
	assert.Equal(t, "UNKNOWN_ERROR", h.mapErrorToCode(errors.New("other")))
}

func TestGetRetryCount(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})

	assert.Equal(t, int32(3), h.getRetryCount(ErrSearchQueryFailed))
	assert.Equal(t, int32(2), h.getRetryCount(ErrSearchTimeout))
	assert.Equal(t, int32(0), h.getRetryCount(errors.New("other")))
}
