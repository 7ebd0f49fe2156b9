// internal/search/journeys_test.go
package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/internal/common/logger"
)

func newTestSearcher(t *testing.T, handler http.HandlerFunc) (*JourneySearcher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewJourneySearcher(client, logger.NewTestLogger(t)), server
}

func esResponse(hits ...map[string]interface{}) string {
	body := map[string]interface{}{
		"hits": map[string]interface{}{
			"total": map[string]interface{}{"value": len(hits)},
			"hits":  hits,
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestSearchParsesHits(t *testing.T) {
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		io.WriteString(w, esResponse(
			map[string]interface{}{
				"_id":    "journey-1",
				"_score": 2.5,
				"_source": map[string]interface{}{
					"name":          "Biscay Crossing",
					"startLocation": "Falmouth",
					"startDate":     "2026-09-15",
				},
			},
		))
	})

	hits, total, err := searcher.Search(context.Background(), &JourneyQuery{Text: "biscay"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, hits, 1)
	assert.Equal(t, "journey-1", hits[0].ID)
	assert.Equal(t, "Biscay Crossing", hits[0].Name)
	assert.Equal(t, 2.5, hits[0].Score)
}

func TestSearchSendsBoundingBoxFilter(t *testing.T) {
	var captured map[string]interface{}
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		json.NewDecoder(r.Body).Decode(&captured)
		io.WriteString(w, esResponse())
	})

	minLat, maxLat := 43.2, 48.0
	minLon, maxLon := -10.0, -1.0
	_, _, err := searcher.Search(context.Background(), &JourneyQuery{
		Text:   "sailing",
		MinLat: &minLat, MaxLat: &maxLat,
		MinLon: &minLon, MaxLon: &maxLon,
	})
	require.NoError(t, err)

	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filters := boolQuery["filter"].([]interface{})
	require.Len(t, filters, 1)
	geo := filters[0].(map[string]interface{})["geo_bounding_box"].(map[string]interface{})["startPoint"].(map[string]interface{})
	topLeft := geo["top_left"].(map[string]interface{})
	assert.Equal(t, 48.0, topLeft["lat"])
	assert.Equal(t, -10.0, topLeft["lon"])
}

func TestSearchNoCriteriaUsesMatchAll(t *testing.T) {
	var captured map[string]interface{}
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		json.NewDecoder(r.Body).Decode(&captured)
		io.WriteString(w, esResponse())
	})

	_, _, err := searcher.Search(context.Background(), &JourneyQuery{})
	require.NoError(t, err)

	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)
	_, ok := must[0].(map[string]interface{})["match_all"]
	assert.True(t, ok)
}

func TestSearchIndexMissing(t *testing.T) {
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"type":"index_not_found_exception"}}`)
	})

	_, _, err := searcher.Search(context.Background(), &JourneyQuery{Text: "x"})
	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeIndexNotFound, stdErr.Code)
}

func TestSearchSkipsMalformedDocument(t *testing.T) {
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		io.WriteString(w, esResponse(
			map[string]interface{}{"_id": "bad", "_score": 1.0, "_source": map[string]interface{}{"name": 42}},
			map[string]interface{}{"_id": "good", "_score": 1.0, "_source": map[string]interface{}{"name": "Solent Weekend"}},
		))
	})

	hits, total, err := searcher.Search(context.Background(), &JourneyQuery{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, hits, 1)
	assert.Equal(t, "good", hits[0].ID)
}
