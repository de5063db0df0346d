package scoring

import (
	"fmt"
	"sort"

	"tender-workers/internal/models"
)

// TieBreak orders bids whose totals are equal.
type TieBreak string

const (
	// TieBreakSubmittedAt ranks earlier submissions first; bids without a
	// submission time go after those with one.
	TieBreakSubmittedAt TieBreak = "submitted_at"
	// TieBreakInputOrder keeps the caller's order.
	TieBreakInputOrder TieBreak = "input_order"
	// TieBreakLowestPrice ranks the cheaper valid price first.
	TieBreakLowestPrice TieBreak = "lowest_price"
)

func ParseTieBreak(s string) (TieBreak, error) {
	switch tb := TieBreak(s); tb {
	case TieBreakSubmittedAt, TieBreakInputOrder, TieBreakLowestPrice:
		return tb, nil
	case "":
		return TieBreakSubmittedAt, nil
	default:
		return "", fmt.Errorf("unknown tie-break %q", s)
	}
}

func (tb TieBreak) less(a, b models.Bid) bool {
	switch tb {
	case TieBreakSubmittedAt:
		if a.SubmittedAt.IsZero() || b.SubmittedAt.IsZero() {
			return !a.SubmittedAt.IsZero() && b.SubmittedAt.IsZero()
		}
		return a.SubmittedAt.Before(b.SubmittedAt)
	case TieBreakLowestPrice:
		pa, pb := a.TotalPrice, b.TotalPrice
		if !validAmount(pa) || !validAmount(pb) {
			return validAmount(pa) && !validAmount(pb)
		}
		return pa < pb
	}
	return false
}

type RankedBid struct {
	Bid        models.Bid `json:"bid"`
	TotalScore int        `json:"totalScore"`
	Position   int        `json:"position"`
}

// Rank orders bids by total score, highest first. Ties are resolved by the
// engine's TieBreak and then by input order.
func (e *Engine) Rank(bids []models.Bid, criteria []models.EvaluationCriterion) []RankedBid {
	ranked := make([]RankedBid, len(bids))
	for i, b := range bids {
		ranked[i] = RankedBid{Bid: b, TotalScore: e.TotalScore(b, criteria, bids)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		return e.tieBreak.less(ranked[i].Bid, ranked[j].Bid)
	})

	for i := range ranked {
		ranked[i].Position = i + 1
	}
	return ranked
}
