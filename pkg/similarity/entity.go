package similarity

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/briar/pkg/models"
)

// systemKeys are managed by the engine and excluded from property comparison.
var systemKeys = map[string]struct{}{
	models.PropURI:          {},
	models.PropConceptID:    {},
	models.PropCreatedAt:    {},
	models.PropLabel:        {},
	models.PropEntityType:   {},
	models.PropDescription:  {},
	models.PropMergedInto:   {},
	models.PropMergedAt:     {},
	models.PropIsCanonical:  {},
	models.PropMergeCount:   {},
	models.PropLastMergedAt: {},
}

// EntityScorer combines per-attribute similarity scores into a single
// weighted score for a pair of entities. Weights are renormalized over the
// attributes that are comparable for the pair, so a missing description on
// one side never drags the score down.
type EntityScorer struct {
	scorer  *Scorer
	weights models.AttributeWeights
}

// NewEntityScorer creates an EntityScorer. A nil weights map selects the
// default weighting.
func NewEntityScorer(weights models.AttributeWeights) *EntityScorer {
	if len(weights) == 0 {
		weights = models.DefaultAttributeWeights()
	}
	return &EntityScorer{
		scorer:  NewScorer(),
		weights: weights,
	}
}

// Score returns the weighted similarity of two entities in [0, 1] together
// with the per-attribute breakdown. An attribute contributes only when both
// sides carry a value for it.
func (es *EntityScorer) Score(a, b *models.Entity) (float64, models.MatchDetails) {
	scores := make(map[string]float64)

	if a.Label != "" && b.Label != "" {
		scores[models.AttributeName] = es.scorer.StringSimilarity(a.Label, b.Label)
	}

	if a.EntityType != "" && b.EntityType != "" {
		scores[models.AttributeType] = es.scorer.ExactMatch(a.EntityType, b.EntityType, false)
	}

	descA := a.Description()
	descB := b.Description()
	if strings.TrimSpace(descA) != "" && strings.TrimSpace(descB) != "" {
		scores[models.AttributeDescription] = es.scorer.TokenSimilarity(descA, descB)
	}

	if propScore, ok := es.propertySimilarity(a.Properties, b.Properties); ok {
		scores[models.AttributeProperties] = propScore
	}

	details := models.MatchDetails{
		AttributeScores: scores,
		SharedLabels:    sharedLabels(a.NodeLabels, b.NodeLabels),
	}

	if len(scores) == 0 {
		return 0.0, details
	}

	var weightedSum, totalWeight float64
	for attr, score := range scores {
		weight, ok := es.weights[attr]
		if !ok {
			continue
		}
		weightedSum += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0.0, details
	}

	return clamp01(weightedSum / totalWeight), details
}

// propertySimilarity compares the open property bags of two entities. The
// sum of per-key value similarities is divided by the larger key count, so
// an entity carrying many extra properties scores lower than a clean match.
func (es *EntityScorer) propertySimilarity(a, b models.Properties) (float64, bool) {
	keysA := comparableKeys(a)
	keysB := comparableKeys(b)

	if len(keysA) == 0 || len(keysB) == 0 {
		return 0.0, false
	}

	var sum float64
	for key := range keysA {
		if _, ok := keysB[key]; !ok {
			continue
		}
		va := a[key]
		vb := b[key]
		if va.Equal(vb) {
			sum += 1.0
			continue
		}
		sum += es.scorer.StringSimilarity(va.Text(), vb.Text())
	}

	denom := float64(max(len(keysA), len(keysB)))
	return clamp01(sum / denom), true
}

func comparableKeys(props models.Properties) map[string]struct{} {
	keys := make(map[string]struct{}, len(props))
	for k, v := range props {
		if _, system := systemKeys[k]; system {
			continue
		}
		if strings.HasPrefix(k, "_") || v.IsEmpty() {
			continue
		}
		keys[k] = struct{}{}
	}
	return keys
}

func sharedLabels(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, l := range a {
		set[l] = struct{}{}
	}
	var shared []string
	for _, l := range b {
		if _, ok := set[l]; ok {
			shared = append(shared, l)
		}
	}
	sort.Strings(shared)
	return shared
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
