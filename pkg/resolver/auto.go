package resolver

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

// AutoResolver merges high-confidence candidate pairs in bulk.
type AutoResolver struct {
	logger   ectologger.Logger
	finder   *CandidateFinder
	merger   *MergeEngine
	defaults models.AutoResolveOptions
}

// NewAutoResolver creates an AutoResolver. Zero-valued fields of defaults
// fall back to the standard auto-resolve defaults.
func NewAutoResolver(logger ectologger.Logger, finder *CandidateFinder, merger *MergeEngine, defaults models.AutoResolveOptions) *AutoResolver {
	std := models.DefaultAutoResolveOptions()
	if defaults.MinScore <= 0 {
		defaults.MinScore = std.MinScore
	}
	if defaults.MaxMerges <= 0 {
		defaults.MaxMerges = std.MaxMerges
	}
	return &AutoResolver{
		logger:   logger,
		finder:   finder,
		merger:   merger,
		defaults: defaults,
	}
}

// Resolve finds candidates at or above opts.MinScore and merges them best
// first, stopping at opts.MaxMerges. In dry-run mode nothing is written; the
// result lists the merges that would have happened and counts them as merged.
// In live mode a failed merge is recorded in the result and the batch
// continues.
func (r *AutoResolver) Resolve(ctx context.Context, opts models.AutoResolveOptions) (*models.AutoResolveResult, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.AutoResolver.Resolve")
	defer span.End()

	if opts.MinScore <= 0 {
		opts.MinScore = r.defaults.MinScore
	}
	if opts.MaxMerges <= 0 {
		opts.MaxMerges = r.defaults.MaxMerges
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_type": opts.EntityType,
		"min_score":   opts.MinScore,
		"max_merges":  opts.MaxMerges,
		"dry_run":     opts.DryRun,
	})

	list, err := r.finder.Find(ctx, FindRequest{
		EntityType: opts.EntityType,
		Limit:      2 * opts.MaxMerges,
		MinScore:   opts.MinScore,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find auto-resolve candidates: %w", err)
	}

	result := &models.AutoResolveResult{DryRun: opts.DryRun}
	consumed := make(map[string]struct{})

	for _, candidate := range list.Candidates {
		if result.Merged >= opts.MaxMerges {
			break
		}
		result.Processed++

		// The finder already filtered by score; re-check in case a custom
		// finder configuration used a lower floor.
		if candidate.Score < opts.MinScore {
			result.Skipped++
			continue
		}

		sourceURI := candidate.Entity2.URI
		targetURI := candidate.Entity1.URI

		// An entity already merged away in this batch cannot take part in
		// another pair.
		if _, gone := consumed[sourceURI]; gone {
			result.Skipped++
			continue
		}
		if _, gone := consumed[targetURI]; gone {
			result.Skipped++
			continue
		}

		if opts.DryRun {
			result.Merged++
			result.Merges = append(result.Merges, models.AutoResolveEntry{
				SourceURI: sourceURI,
				TargetURI: targetURI,
				Score:     candidate.Score,
				DryRun:    true,
			})
			consumed[sourceURI] = struct{}{}
			continue
		}

		// Autonomous merges stay on the default strategy: keeping the
		// target's value on conflicts is the conservative choice for a
		// batch nobody reviewed pair by pair.
		outcome, err := r.merger.Merge(ctx, sourceURI, targetURI, models.MergeOptions{
			Strategy: models.StrategyPreferTarget,
			UserID:   opts.UserID,
		})
		if err != nil {
			log.WithError(err).WithFields(map[string]any{
				"source_uri": sourceURI,
				"target_uri": targetURI,
			}).Warn("auto-resolve merge failed")
			result.Errors = append(result.Errors, models.AutoResolveError{
				SourceURI: sourceURI,
				TargetURI: targetURI,
				Error:     err.Error(),
			})
			continue
		}

		result.Merged++
		result.Merges = append(result.Merges, models.AutoResolveEntry{
			SourceURI: sourceURI,
			TargetURI: targetURI,
			Score:     candidate.Score,
			MergeID:   outcome.MergeID,
		})
		consumed[sourceURI] = struct{}{}
	}

	log.WithFields(map[string]any{
		"processed": result.Processed,
		"merged":    result.Merged,
		"skipped":   result.Skipped,
		"errors":    len(result.Errors),
	}).Info("auto-resolve batch complete")

	return result, nil
}
