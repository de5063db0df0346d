package scoring

import (
	"fmt"
	"math"
	"sort"

	"tender-workers/internal/models"
)

// WeightTolerance is the allowed drift of a weight total from 100.
const WeightTolerance = 0.01

type CriteriaIssue struct {
	CriterionID string `json:"criterionId,omitempty"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

const (
	IssueNoCriteria    = "NO_CRITERIA"
	IssueEmptyID       = "EMPTY_ID"
	IssueDuplicateID   = "DUPLICATE_ID"
	IssueUnknownType   = "UNKNOWN_TYPE"
	IssueInvalidWeight = "INVALID_WEIGHT"
	IssueWeightTotal   = "WEIGHT_TOTAL"
)

func WeightTotal(criteria []models.EvaluationCriterion) float64 {
	total := 0.0
	for _, c := range criteria {
		total += c.Weight
	}
	return total
}

// ValidateCriteria reports everything that would make a tender's criteria
// produce totals outside the 0-100 range. An empty result means valid.
func ValidateCriteria(criteria []models.EvaluationCriterion) []CriteriaIssue {
	if len(criteria) == 0 {
		return []CriteriaIssue{{Code: IssueNoCriteria, Message: "at least one criterion is required"}}
	}

	var issues []CriteriaIssue
	seen := make(map[string]bool, len(criteria))
	weightsUsable := true
	for _, c := range criteria {
		switch {
		case c.ID == "":
			issues = append(issues, CriteriaIssue{Code: IssueEmptyID, Message: fmt.Sprintf("criterion %q has no id", c.Name)})
		case seen[c.ID]:
			issues = append(issues, CriteriaIssue{CriterionID: c.ID, Code: IssueDuplicateID, Message: "duplicate criterion id"})
		}
		seen[c.ID] = true

		if !c.Type.Valid() {
			issues = append(issues, CriteriaIssue{CriterionID: c.ID, Code: IssueUnknownType, Message: fmt.Sprintf("unknown criterion type %q", c.Type)})
		}
		if !isFinite(c.Weight) || c.Weight < 0 {
			weightsUsable = false
			issues = append(issues, CriteriaIssue{CriterionID: c.ID, Code: IssueInvalidWeight, Message: "weight must be a non-negative number"})
		}
	}

	if weightsUsable {
		if total := WeightTotal(criteria); math.Abs(total-100) > WeightTolerance {
			issues = append(issues, CriteriaIssue{Code: IssueWeightTotal, Message: fmt.Sprintf("weights total %.2f, expected 100", total)})
		}
	}
	return issues
}

// NormalizeWeights rescales weights proportionally so they total exactly
// 100 at two decimals, handing leftover hundredths to the largest
// remainders. Unusable weights count as zero; if nothing is usable the
// weight is split evenly.
func NormalizeWeights(criteria []models.EvaluationCriterion) []models.EvaluationCriterion {
	out := make([]models.EvaluationCriterion, len(criteria))
	copy(out, criteria)
	if len(out) == 0 {
		return out
	}

	raw := make([]float64, len(out))
	total := 0.0
	for i, c := range out {
		if isFinite(c.Weight) && c.Weight > 0 {
			raw[i] = c.Weight
			total += c.Weight
		}
	}
	if total == 0 || !isFinite(total) {
		for i := range raw {
			raw[i] = 1
		}
		total = float64(len(raw))
	}

	const units = 10000 // hundredths of a percent
	shares := make([]int, len(raw))
	remainders := make([]float64, len(raw))
	assigned := 0
	for i, w := range raw {
		exact := w / total * units
		shares[i] = int(math.Floor(exact + 1e-9))
		remainders[i] = exact - float64(shares[i])
		assigned += shares[i]
	}

	order := make([]int, len(raw))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return remainders[order[a]] > remainders[order[b]] })
	for k := 0; assigned < units; k++ {
		shares[order[k%len(order)]]++
		assigned++
	}

	for i := range out {
		out[i].Weight = float64(shares[i]) / 100
	}
	return out
}
