// Package search keeps ranking snapshots in Elasticsearch so that a
// contractor's placements can be looked up across tenders.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tender-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const DefaultIndex = "tender-rankings"

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
	ErrIndexingFailed    = errors.New("SEARCH_INDEXING_FAILED")
)

// Placement is the indexed form of one bid's position in a ranking.
type Placement struct {
	TenderID     string    `json:"tenderId"`
	BidID        string    `json:"bidId"`
	ContractorID string    `json:"contractorId"`
	TotalScore   int       `json:"totalScore"`
	Position     int       `json:"position"`
	RankedBids   int       `json:"rankedBids"`
	RankedAt     time.Time `json:"rankedAt"`
}

type RankingIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewRankingIndex(client *elasticsearch.Client, index string) *RankingIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &RankingIndex{client: client, index: index}
}

func placementID(tenderID, bidID string) string {
	return tenderID + ":" + bidID
}

// IndexRanking writes one document per placement. Document ids are stable
// per tender and bid, so re-ranking a tender overwrites its placements.
func (ix *RankingIndex) IndexRanking(ctx context.Context, snapshot models.RankingSnapshot) error {
	if len(snapshot.Entries) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, e := range snapshot.Entries {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_id": placementID(snapshot.TenderID, e.BidID)},
		}
		doc := Placement{
			TenderID:     snapshot.TenderID,
			BidID:        e.BidID,
			ContractorID: e.ContractorID,
			TotalScore:   e.TotalScore,
			Position:     e.Position,
			RankedBids:   len(snapshot.Entries),
			RankedAt:     snapshot.RankedAt,
		}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("%w: %w", ErrIndexingFailed, err)
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("%w: %w", ErrIndexingFailed, err)
		}
	}

	req := esapi.BulkRequest{
		Index: ix.index,
		Body:  &body,
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexingFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexingFailed, res.Status())
	}

	var bulk struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return fmt.Errorf("%w: decode bulk response: %w", ErrIndexingFailed, err)
	}
	if bulk.Errors {
		return fmt.Errorf("%w: bulk request reported item failures", ErrIndexingFailed)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source Placement `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ContractorHistory returns a contractor's most recent placements first.
func (ix *RankingIndex) ContractorHistory(ctx context.Context, contractorID string, size int) ([]Placement, int64, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"contractorId": contractorID},
		},
		"sort": []interface{}{
			map[string]interface{}{"rankedAt": map[string]interface{}{"order": "desc"}},
		},
	}
	body, _ := json.Marshal(query)

	req := esapi.SearchRequest{
		Index: []string{ix.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, 0, fmt.Errorf("%w: %s", ErrIndexNotFound, ix.index)
	}
	if res.IsError() {
		return nil, 0, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, 0, fmt.Errorf("%w: decode response: %w", ErrSearchQueryFailed, err)
	}

	placements := make([]Placement, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		placements = append(placements, hit.Source)
	}
	return placements, sr.Hits.Total.Value, nil
}
