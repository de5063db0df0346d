package scoring

import (
	"github.com/shopspring/decimal"

	"tender-workers/internal/models"
)

var hundred = decimal.NewFromInt(100)

type strategy func(bid models.Bid, allBids []models.Bid) float64

var strategies = map[models.CriterionType]strategy{
	models.CriterionPrice:      lowerIsBetter(func(b models.Bid) float64 { return b.TotalPrice }),
	models.CriterionTime:       lowerIsBetter(func(b models.Bid) float64 { return b.ProposedTimeline }),
	models.CriterionQuality:    fixed(QualitativeDefaultScore),
	models.CriterionExperience: fixed(QualitativeDefaultScore),
	models.CriterionOther:      fixed(QualitativeDefaultScore),
}

// AutomaticScore scores a bid on one criterion without evaluator input.
// Price and time compare against the best valid value among allBids;
// every other criterion type gets the qualitative default.
func (e *Engine) AutomaticScore(bid models.Bid, criterion models.EvaluationCriterion, allBids []models.Bid) float64 {
	if fn, ok := strategies[criterion.Type]; ok {
		return fn(bid, allBids)
	}
	return QualitativeDefaultScore
}

func fixed(score float64) strategy {
	return func(models.Bid, []models.Bid) float64 { return score }
}

func lowerIsBetter(value func(models.Bid) float64) strategy {
	return func(bid models.Bid, allBids []models.Bid) float64 {
		own := value(bid)
		if !validAmount(own) {
			return NeutralComparisonScore
		}
		best, ok := minimum(allBids, value)
		if !ok {
			return NeutralComparisonScore
		}
		return relativeScore(best, own)
	}
}

func minimum(bids []models.Bid, value func(models.Bid) float64) (float64, bool) {
	found := false
	best := 0.0
	for _, b := range bids {
		v := value(b)
		if !validAmount(v) {
			continue
		}
		if !found || v < best {
			best = v
			found = true
		}
	}
	return best, found
}

// validAmount reports whether v can take part in a lower-is-better comparison.
func validAmount(v float64) bool {
	return isFinite(v) && v > 0
}

func relativeScore(best, own float64) float64 {
	ratio := decimal.NewFromFloat(best).Mul(hundred).Div(decimal.NewFromFloat(own))
	return clamp(ratio.InexactFloat64(), 0, MaxScore)
}
