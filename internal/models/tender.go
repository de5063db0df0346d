// internal/models/tender.go
package models

import "time"

type CriterionType string

const (
	CriterionPrice      CriterionType = "price"
	CriterionQuality    CriterionType = "quality"
	CriterionTime       CriterionType = "time"
	CriterionExperience CriterionType = "experience"
	CriterionOther      CriterionType = "other"
)

func (t CriterionType) Valid() bool {
	switch t {
	case CriterionPrice, CriterionQuality, CriterionTime, CriterionExperience, CriterionOther:
		return true
	}
	return false
}

// EvaluationCriterion is one weighted dimension of a tender evaluation.
// Weight is a percentage; the weights of a tender are expected to total 100.
type EvaluationCriterion struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Weight      float64       `json:"weight"`
	Type        CriterionType `json:"type"`
	Description string        `json:"description,omitempty"`
}

type Tender struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	ManagerID string                `json:"managerId"`
	Status    string                `json:"status"`
	Criteria  []EvaluationCriterion `json:"criteria"`
	Deadline  *time.Time            `json:"deadline,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}
