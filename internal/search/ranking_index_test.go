package search

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tender-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *RankingIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  []string{srv.URL},
		MaxRetries: 1,
	})
	require.NoError(t, err)
	return NewRankingIndex(client, "")
}

var rankedAt = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestIndexRanking(t *testing.T) {
	var (
		path  string
		lines []map[string]interface{}
	)
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			var line map[string]interface{}
			_ = json.Unmarshal(scanner.Bytes(), &line)
			lines = append(lines, line)
		}
		_, _ = w.Write([]byte(`{"took":3,"errors":false,"items":[]}`))
	})

	err := ix.IndexRanking(context.Background(), models.RankingSnapshot{
		TenderID: "t1",
		RankedAt: rankedAt,
		Entries: []models.RankingEntry{
			{BidID: "b2", ContractorID: "k2", TotalScore: 90, Position: 1},
			{BidID: "b1", ContractorID: "k1", TotalScore: 70, Position: 2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/tender-rankings/_bulk", path)
	require.Len(t, lines, 4)
	assert.Equal(t, "t1:b2", lines[0]["index"].(map[string]interface{})["_id"])
	assert.Equal(t, "k2", lines[1]["contractorId"])
	assert.Equal(t, 1.0, lines[1]["position"])
	assert.Equal(t, 2.0, lines[1]["rankedBids"])
	assert.Equal(t, "t1:b1", lines[2]["index"].(map[string]interface{})["_id"])
}

func TestIndexRanking_ItemFailures(t *testing.T) {
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"took":3,"errors":true,"items":[]}`))
	})

	err := ix.IndexRanking(context.Background(), models.RankingSnapshot{
		TenderID: "t1",
		Entries:  []models.RankingEntry{{BidID: "b1"}},
	})
	assert.ErrorIs(t, err, ErrIndexingFailed)
}

func TestIndexRanking_EmptyIsNoop(t *testing.T) {
	called := false
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	require.NoError(t, ix.IndexRanking(context.Background(), models.RankingSnapshot{TenderID: "t1"}))
	assert.False(t, called)
}

func TestContractorHistory(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		wantErr        error
		validateOutput func(t *testing.T, placements []Placement, total int64)
	}{
		{
			name:   "placements",
			status: http.StatusOK,
			body: `{"took":2,"hits":{"total":{"value":2},"hits":[
				{"_source":{"tenderId":"t2","bidId":"b7","contractorId":"k1","totalScore":88,"position":1,"rankedBids":4,"rankedAt":"2026-03-02T10:00:00Z"}},
				{"_source":{"tenderId":"t1","bidId":"b1","contractorId":"k1","totalScore":70,"position":2,"rankedBids":2,"rankedAt":"2026-02-01T10:00:00Z"}}]}}`,
			validateOutput: func(t *testing.T, placements []Placement, total int64) {
				assert.Equal(t, int64(2), total)
				require.Len(t, placements, 2)
				assert.Equal(t, "t2", placements[0].TenderID)
				assert.Equal(t, 4, placements[0].RankedBids)
				assert.Equal(t, rankedAt, placements[0].RankedAt)
			},
		},
		{
			name:   "no placements",
			status: http.StatusOK,
			body:   `{"took":1,"hits":{"total":{"value":0},"hits":[]}}`,
			validateOutput: func(t *testing.T, placements []Placement, total int64) {
				assert.Zero(t, total)
				assert.NotNil(t, placements)
				assert.Empty(t, placements)
			},
		},
		{
			name:    "missing index",
			status:  http.StatusNotFound,
			body:    `{"error":{"type":"index_not_found_exception"},"status":404}`,
			wantErr: ErrIndexNotFound,
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"error":{"type":"parsing_exception"},"status":400}`,
			wantErr: ErrSearchQueryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/tender-rankings/_search", r.URL.Path)
				assert.Equal(t, "10", r.URL.Query().Get("size"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			placements, total, err := ix.ContractorHistory(context.Background(), "k1", 10)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, placements, total)
		})
	}
}
