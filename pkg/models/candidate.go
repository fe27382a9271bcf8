package models

// ConfidenceLevel buckets a similarity score against the threshold ladder.
type ConfidenceLevel string

const (
	ConfidenceExact     ConfidenceLevel = "exact"
	ConfidenceHigh      ConfidenceLevel = "high"
	ConfidenceMedium    ConfidenceLevel = "medium"
	ConfidenceLow       ConfidenceLevel = "low"
	ConfidenceUncertain ConfidenceLevel = "uncertain"
)

// Thresholds is the ladder used to classify candidate pairs.
type Thresholds struct {
	ExactMatch float64 `json:"exact_match"`
	High       float64 `json:"high"`
	Medium     float64 `json:"medium"`
	Low        float64 `json:"low"`
	Minimum    float64 `json:"minimum"`
}

// DefaultThresholds returns the standard ladder.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExactMatch: 1.0,
		High:       0.85,
		Medium:     0.70,
		Low:        0.55,
		Minimum:    0.50,
	}
}

// Confidence maps a score onto the ladder.
func (t Thresholds) Confidence(score float64) ConfidenceLevel {
	switch {
	case score >= t.ExactMatch:
		return ConfidenceExact
	case score >= t.High:
		return ConfidenceHigh
	case score >= t.Medium:
		return ConfidenceMedium
	case score >= t.Low:
		return ConfidenceLow
	default:
		return ConfidenceUncertain
	}
}

// AttributeWeights maps attribute names to their contribution to the overall
// entity similarity score. Weights are renormalized over the attributes that
// are actually comparable for a given pair.
type AttributeWeights map[string]float64

// Attribute names recognized by the scorer.
const (
	AttributeName          = "name"
	AttributeType          = "type"
	AttributeDescription   = "description"
	AttributeProperties    = "properties"
	AttributeRelationships = "relationships"
)

// DefaultAttributeWeights returns the standard weighting.
func DefaultAttributeWeights() AttributeWeights {
	return AttributeWeights{
		AttributeName:          0.4,
		AttributeType:          0.2,
		AttributeDescription:   0.15,
		AttributeProperties:    0.15,
		AttributeRelationships: 0.10,
	}
}

// MatchDetails carries the per-attribute breakdown behind a candidate score.
type MatchDetails struct {
	AttributeScores map[string]float64 `json:"attribute_scores"`
	SharedLabels    []string           `json:"shared_labels,omitempty"`
}

// SimilarityCandidate is one scored pair of potential duplicates.
type SimilarityCandidate struct {
	Entity1    Entity          `json:"entity1"`
	Entity2    Entity          `json:"entity2"`
	Score      float64         `json:"score"`
	Confidence ConfidenceLevel `json:"confidence"`
	Details    MatchDetails    `json:"details"`
}

// CandidateList is the result of a candidate discovery pass.
type CandidateList struct {
	Candidates []SimilarityCandidate `json:"candidates"`
	TotalFound int                   `json:"total_found"`
	Thresholds Thresholds            `json:"thresholds"`
}
