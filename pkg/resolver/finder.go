package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/similarity"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

// FinderConfig tunes candidate discovery.
type FinderConfig struct {
	Thresholds   models.Thresholds
	Weights      models.AttributeWeights
	Blocking     BlockingPredicate
	DefaultLimit int
}

// FindRequest is a single candidate discovery request.
type FindRequest struct {
	EntityType      string
	Limit           int
	MinScore        float64
	IncludeResolved bool
}

// CandidateFinder scans the graph for likely duplicate pairs.
type CandidateFinder struct {
	logger       ectologger.Logger
	store        GraphStore
	scorer       *similarity.EntityScorer
	thresholds   models.Thresholds
	blocking     BlockingPredicate
	defaultLimit int
}

// NewCandidateFinder creates a CandidateFinder. Zero-valued config fields
// fall back to the defaults (standard ladder, default weights, prefix
// blocking with a 3-char prefix and 2 edits of slack).
func NewCandidateFinder(logger ectologger.Logger, store GraphStore, cfg FinderConfig) *CandidateFinder {
	thresholds := cfg.Thresholds
	if thresholds == (models.Thresholds{}) {
		thresholds = models.DefaultThresholds()
	}
	blocking := cfg.Blocking
	if blocking == nil {
		blocking = PrefixBlocking(3, 2)
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &CandidateFinder{
		logger:       logger,
		store:        store,
		scorer:       similarity.NewEntityScorer(cfg.Weights),
		thresholds:   thresholds,
		blocking:     blocking,
		defaultLimit: defaultLimit,
	}
}

// Find returns scored duplicate candidates, best first, truncated to
// req.Limit. Entities are fetched at twice the requested limit so the
// pairwise scan has enough material to fill the result.
func (f *CandidateFinder) Find(ctx context.Context, req FindRequest) (*models.CandidateList, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.CandidateFinder.Find")
	defer span.End()

	limit := req.Limit
	if limit <= 0 {
		limit = f.defaultLimit
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = f.thresholds.Minimum
	}

	log := f.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_type": req.EntityType,
		"limit":       limit,
		"min_score":   minScore,
	})

	entities, err := f.store.FindEntities(ctx, models.FindOptions{
		EntityType:      req.EntityType,
		IncludeResolved: req.IncludeResolved,
		Limit:           2 * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entities for candidate scan: %w", err)
	}

	candidates := f.scanPairs(entities, minScore)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	total := len(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	log.WithFields(map[string]any{
		"scanned":  len(entities),
		"found":    total,
		"returned": len(candidates),
	}).Info("candidate scan complete")

	return &models.CandidateList{
		Candidates: candidates,
		TotalFound: total,
		Thresholds: f.thresholds,
	}, nil
}

// scanPairs scores every unordered pair that survives blocking. Pairs are
// deduplicated by their sorted uri pair, so (a,b) and (b,a) score once.
func (f *CandidateFinder) scanPairs(entities []models.Entity, minScore float64) []models.SimilarityCandidate {
	var candidates []models.SimilarityCandidate
	seen := make(map[string]struct{})

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			a := &entities[i]
			b := &entities[j]

			if a.URI == b.URI {
				continue
			}

			key := pairKey(a.URI, b.URI)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if !f.blocking(a, b) {
				continue
			}

			score, details := f.scorer.Score(a, b)
			if score < minScore {
				continue
			}

			candidates = append(candidates, models.SimilarityCandidate{
				Entity1:    *a,
				Entity2:    *b,
				Score:      score,
				Confidence: f.thresholds.Confidence(score),
				Details:    details,
			})
		}
	}

	return candidates
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
