package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-workers/internal/models"
)

func rankedIDs(ranked []RankedBid) []string {
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Bid.ID
	}
	return ids
}

func TestEngine_Rank_TwoBidsByPrice(t *testing.T) {
	engine := newTestEngine()
	bids := []models.Bid{bidWithPrice("b", 2000), bidWithPrice("a", 1000)}

	ranked := engine.Rank(bids, []models.EvaluationCriterion{priceCriterion(100)})

	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"a", "b"}, rankedIDs(ranked))
	assert.Equal(t, 100, ranked[0].TotalScore)
	assert.Equal(t, 50, ranked[1].TotalScore)
	assert.Equal(t, 1, ranked[0].Position)
	assert.Equal(t, 2, ranked[1].Position)
}

func TestEngine_Rank_Empty(t *testing.T) {
	ranked := newTestEngine().Rank(nil, []models.EvaluationCriterion{priceCriterion(100)})
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestEngine_Rank_TieBreak(t *testing.T) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	// all three tie at 75 on a single qualitative criterion
	bids := []models.Bid{
		{ID: "late", TotalPrice: 900, SubmittedAt: base.Add(2 * time.Hour)},
		{ID: "undated", TotalPrice: 800},
		{ID: "early", TotalPrice: 1000, SubmittedAt: base},
	}
	criteria := []models.EvaluationCriterion{qualityCriterion(100)}

	tests := []struct {
		name     string
		tieBreak TieBreak
		expected []string
	}{
		{name: "submission time ascending", tieBreak: TieBreakSubmittedAt, expected: []string{"early", "late", "undated"}},
		{name: "input order", tieBreak: TieBreakInputOrder, expected: []string{"late", "undated", "early"}},
		{name: "lowest price", tieBreak: TieBreakLowestPrice, expected: []string{"undated", "late", "early"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := newTestEngine(WithTieBreak(tt.tieBreak)).Rank(bids, criteria)
			assert.Equal(t, tt.expected, rankedIDs(ranked))
		})
	}
}

func TestEngine_Rank_DoesNotReorderInput(t *testing.T) {
	bids := []models.Bid{bidWithPrice("b", 2000), bidWithPrice("a", 1000)}
	newTestEngine().Rank(bids, []models.EvaluationCriterion{priceCriterion(100)})
	assert.Equal(t, "b", bids[0].ID)
}

func TestParseTieBreak(t *testing.T) {
	tb, err := ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, TieBreakSubmittedAt, tb)

	tb, err = ParseTieBreak("lowest_price")
	require.NoError(t, err)
	assert.Equal(t, TieBreakLowestPrice, tb)

	_, err = ParseTieBreak("random")
	assert.Error(t, err)
}
