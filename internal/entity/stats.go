package entity

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Distribution is a label -> count mapping that keeps the backend's JSON key order.
// Chart ordering depends on this order, so it must never be replaced by a Go map.
type Distribution = orderedmap.OrderedMap[string, int]

// NewDistribution returns an empty Distribution.
func NewDistribution() *Distribution {
	return orderedmap.New[string, int]()
}

// DashboardStats is the job-scoped aggregate snapshot. It is replaced wholesale on every fetch.
type DashboardStats struct {
	TotalProviders        int           `json:"total_providers"`
	AutoValidated         int           `json:"auto_validated"`
	NeedsReview           int           `json:"needs_review"`
	Suspicious            int           `json:"suspicious"`
	AverageConfidence     float64       `json:"average_confidence"`
	ValidationStatus      *Distribution `json:"validation_status"`
	SpecialtyDistribution *Distribution `json:"specialty_distribution"`
	StateDistribution     *Distribution `json:"state_distribution,omitempty"`
}
