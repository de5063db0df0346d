// Package scoring computes weighted multi-criteria scores for tender bids
// and ranks them. It performs no I/O; callers own the bid collection.
package scoring

import (
	"math"
	"time"

	"tender-workers/internal/models"
)

const (
	MaxScore = 100.0

	// NeutralComparisonScore is used for price and time when no comparison
	// basis exists or the bid's own value is missing.
	NeutralComparisonScore = 50.0

	// QualitativeDefaultScore is the placeholder for criteria that need an
	// evaluator's judgement.
	QualitativeDefaultScore = 75.0
)

type ScoreSource string

const (
	SourceManual    ScoreSource = "manual"
	SourceAutomatic ScoreSource = "automatic"
)

type Engine struct {
	now         func() time.Time
	tieBreak    TieBreak
	normalize   bool
	clampManual bool
}

type Option func(*Engine)

// WithClock overrides the clock used to stamp evaluations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithTieBreak(tb TieBreak) Option {
	return func(e *Engine) { e.tieBreak = tb }
}

// WithWeightNormalization rescales weights to total 100 before summing.
// Off by default: weights are taken as given.
func WithWeightNormalization(enabled bool) Option {
	return func(e *Engine) { e.normalize = enabled }
}

// WithManualScoreClamping bounds manual scores to [0, 100]. On by default.
func WithManualScoreClamping(enabled bool) Option {
	return func(e *Engine) { e.clampManual = enabled }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		now:         func() time.Time { return time.Now().UTC() },
		tieBreak:    TieBreakSubmittedAt,
		clampManual: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now reads the engine clock. Callers use it to stamp results derived from
// the engine so that tests can pin time in one place.
func (e *Engine) Now() time.Time {
	return e.now()
}

// EffectiveScore resolves the score used for one criterion: the manual score
// when present and finite, otherwise the automatic score.
func (e *Engine) EffectiveScore(bid models.Bid, criterion models.EvaluationCriterion, allBids []models.Bid) (float64, ScoreSource) {
	if s, ok := bid.ManualScore(criterion.ID); ok && isFinite(s) {
		if e.clampManual {
			s = clamp(s, 0, MaxScore)
		}
		return s, SourceManual
	}
	return e.AutomaticScore(bid, criterion, allBids), SourceAutomatic
}

// TotalScore is the weighted sum of effective scores rounded to the nearest
// integer. Any non-finite intermediate result yields 0.
func (e *Engine) TotalScore(bid models.Bid, criteria []models.EvaluationCriterion, allBids []models.Bid) int {
	weights := e.weights(criteria)
	sum := 0.0
	for i, c := range criteria {
		s, _ := e.EffectiveScore(bid, c, allBids)
		sum += s * weights[i] / 100
	}
	return roundTotal(sum)
}

// CriterionScore explains how one criterion contributed to a bid's total.
type CriterionScore struct {
	CriterionID    string               `json:"criterionId"`
	Name           string               `json:"name"`
	Type           models.CriterionType `json:"type"`
	Weight         float64              `json:"weight"`
	AutomaticScore float64              `json:"automaticScore"`
	ManualScore    *float64             `json:"manualScore,omitempty"`
	EffectiveScore float64              `json:"effectiveScore"`
	Source         ScoreSource          `json:"source"`
	WeightedScore  float64              `json:"weightedScore"`
}

func (e *Engine) Breakdown(bid models.Bid, criteria []models.EvaluationCriterion, allBids []models.Bid) []CriterionScore {
	weights := e.weights(criteria)
	out := make([]CriterionScore, 0, len(criteria))
	for i, c := range criteria {
		effective, source := e.EffectiveScore(bid, c, allBids)
		cs := CriterionScore{
			CriterionID:    c.ID,
			Name:           c.Name,
			Type:           c.Type,
			Weight:         weights[i],
			AutomaticScore: e.AutomaticScore(bid, c, allBids),
			EffectiveScore: effective,
			Source:         source,
		}
		if source == SourceManual {
			m := effective
			cs.ManualScore = &m
		}
		if w := effective * weights[i] / 100; isFinite(w) {
			cs.WeightedScore = w
		}
		out = append(out, cs)
	}
	return out
}

// UpdateManualScore records an evaluator's score for one criterion and
// recomputes the bid's total. The input bid is not modified.
func (e *Engine) UpdateManualScore(bid models.Bid, criterionID string, score float64, criteria []models.EvaluationCriterion, allBids []models.Bid) models.Bid {
	if e.clampManual && isFinite(score) {
		score = clamp(score, 0, MaxScore)
	}

	eval := models.Evaluation{CriteriaScores: make(map[string]float64)}
	if bid.Evaluation != nil {
		eval.EvaluatorID = bid.Evaluation.EvaluatorID
		eval.Notes = bid.Evaluation.Notes
		for id, s := range bid.Evaluation.CriteriaScores {
			eval.CriteriaScores[id] = s
		}
	}
	eval.CriteriaScores[criterionID] = score

	updated := bid
	updated.Evaluation = &eval
	eval.TotalScore = e.TotalScore(updated, criteria, allBids)
	evaluatedAt := e.now()
	eval.EvaluatedAt = &evaluatedAt
	return updated
}

func (e *Engine) weights(criteria []models.EvaluationCriterion) []float64 {
	out := make([]float64, len(criteria))
	total := 0.0
	for i, c := range criteria {
		out[i] = c.Weight
		total += c.Weight
	}
	if !e.normalize || !isFinite(total) || total <= 0 {
		return out
	}
	for i := range out {
		out[i] = out[i] * 100 / total
	}
	return out
}

// roundTotal keeps totals inside the INT column they are stored in.
func roundTotal(sum float64) int {
	if !isFinite(sum) {
		return 0
	}
	// half up, matching how the totals were always displayed
	return int(clamp(math.Floor(sum+0.5), math.MinInt32, math.MaxInt32))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
