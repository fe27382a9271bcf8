package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

// carriedNever lists the property keys that are never copied from source to
// target, regardless of strategy. uri, concept_id and created_at identify the
// node; the rest is merge bookkeeping the engine maintains itself.
var carriedNever = map[string]struct{}{
	models.PropURI:          {},
	models.PropConceptID:    {},
	models.PropCreatedAt:    {},
	models.PropMergedInto:   {},
	models.PropMergedAt:     {},
	models.PropIsCanonical:  {},
	models.PropMergeCount:   {},
	models.PropLastMergedAt: {},
}

// MergeEngine folds one entity into another, transfers its relationships,
// and writes the audit record that makes the merge undoable.
type MergeEngine struct {
	logger ectologger.Logger
	store  GraphStore
	sink   AuditSink
}

// NewMergeEngine creates a MergeEngine.
func NewMergeEngine(logger ectologger.Logger, store GraphStore, sink AuditSink) *MergeEngine {
	return &MergeEngine{
		logger: logger,
		store:  store,
		sink:   sink,
	}
}

// Merge folds source into target. The target keeps its identity; source is
// either hard-deleted or kept as a soft-merged tombstone pointing at the
// target. A MergeRecord with both pre-merge snapshots is written on every
// successful path.
func (e *MergeEngine) Merge(ctx context.Context, sourceURI, targetURI string, opts models.MergeOptions) (*models.MergeOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.MergeEngine.Merge")
	defer span.End()

	strategy := opts.Strategy
	if strategy == "" {
		strategy = models.StrategyPreferTarget
	}
	mergedBy := opts.UserID
	if mergedBy == "" {
		mergedBy = "system"
	}
	if !strategy.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown merge strategy: %s", strategy))
	}
	if sourceURI == targetURI {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "cannot merge an entity into itself")
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"source_uri": sourceURI,
		"target_uri": targetURI,
		"strategy":   strategy,
	})

	source, target, err := e.store.GetEntityPair(ctx, sourceURI, targetURI)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch merge pair: %w", err)
	}
	if source == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("entity not found: %s", sourceURI))
	}
	if target == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("entity not found: %s", targetURI))
	}

	sourceSnapshot, err := json.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot source entity: %w", err)
	}
	targetSnapshot, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot target entity: %w", err)
	}
	sourceLabels, err := json.Marshal(source.NodeLabels)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot source labels: %w", err)
	}

	merged := MergeProperties(target.Properties, source.Properties, strategy)

	mergeCount := 0.0
	if v, ok := target.Properties[models.PropMergeCount]; ok {
		mergeCount = v.Num
	}
	now := models.Now()
	merged[models.PropMergeCount] = models.NumberValue(mergeCount + 1)
	merged[models.PropLastMergedAt] = models.TimeValue(now)

	if err := e.store.UpdateEntityProperties(ctx, targetURI, merged); err != nil {
		return nil, fmt.Errorf("failed to update merge target %s: %w", targetURI, err)
	}

	transferred, err := e.transferRelationships(ctx, source, target)
	if err != nil {
		return nil, err
	}

	if opts.KeepSource {
		tombstone := source.Properties.Clone()
		tombstone[models.PropMergedInto] = models.StringValue(targetURI)
		tombstone[models.PropMergedAt] = models.TimeValue(now)
		tombstone[models.PropIsCanonical] = models.BoolValue(false)
		if err := e.store.UpdateEntityProperties(ctx, sourceURI, tombstone); err != nil {
			return nil, fmt.Errorf("failed to tombstone merge source %s: %w", sourceURI, err)
		}
	} else {
		if err := e.store.DeleteEntity(ctx, sourceURI); err != nil {
			return nil, fmt.Errorf("failed to delete merge source %s: %w", sourceURI, err)
		}
	}

	record := &models.MergeRecord{
		MergeID:        uuid.NewString(),
		SourceURI:      sourceURI,
		TargetURI:      targetURI,
		Strategy:       strategy,
		MergedBy:       mergedBy,
		MergedAt:       now,
		SourceSnapshot: sourceSnapshot,
		TargetSnapshot: targetSnapshot,
		SourceLabels:   sourceLabels,
		SourceKept:     opts.KeepSource,
	}
	if err := e.sink.WriteMergeRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to write merge record: %w", err)
	}

	log.WithFields(map[string]any{
		"merge_id":       record.MergeID,
		"transferred":    transferred,
		"source_deleted": !opts.KeepSource,
	}).Info("entities merged")

	return &models.MergeOutcome{
		MergeID:                  record.MergeID,
		TargetURI:                targetURI,
		SourceURI:                sourceURI,
		SourceDeleted:            !opts.KeepSource,
		RelationshipsTransferred: transferred,
	}, nil
}

// transferRelationships re-points every edge touching source at target,
// skipping edges whose far end is the target itself (they would become
// self-loops). UpsertEdge makes the transfer idempotent: a retry after a
// partial failure never duplicates an edge.
func (e *MergeEngine) transferRelationships(ctx context.Context, source, target *models.Entity) (int, error) {
	transferred := 0

	outgoing, err := e.store.ListEdges(ctx, source.URI, models.DirectionOutgoing)
	if err != nil {
		return 0, fmt.Errorf("failed to list outgoing edges of %s: %w", source.URI, err)
	}
	for _, edge := range outgoing {
		if edge.ToURI == target.URI {
			continue
		}
		props := edge.Properties.Clone()
		props[models.PropTransferredFrom] = models.StringValue(source.URI)
		if err := e.store.UpsertEdge(ctx, models.Edge{
			Type:       edge.Type,
			FromURI:    target.URI,
			ToURI:      edge.ToURI,
			Properties: props,
		}); err != nil {
			return transferred, fmt.Errorf("failed to transfer edge %s -> %s: %w", target.URI, edge.ToURI, err)
		}
		transferred++
	}

	incoming, err := e.store.ListEdges(ctx, source.URI, models.DirectionIncoming)
	if err != nil {
		return transferred, fmt.Errorf("failed to list incoming edges of %s: %w", source.URI, err)
	}
	for _, edge := range incoming {
		if edge.FromURI == target.URI {
			continue
		}
		props := edge.Properties.Clone()
		props[models.PropTransferredFrom] = models.StringValue(source.URI)
		if err := e.store.UpsertEdge(ctx, models.Edge{
			Type:       edge.Type,
			FromURI:    edge.FromURI,
			ToURI:      target.URI,
			Properties: props,
		}); err != nil {
			return transferred, fmt.Errorf("failed to transfer edge %s -> %s: %w", edge.FromURI, target.URI, err)
		}
		transferred++
	}

	return transferred, nil
}

// MergeProperties combines two property bags under the given strategy. The
// result always starts from the target's bag; source values that are empty,
// engine-managed, or underscore-prefixed never carry over.
func MergeProperties(target, source models.Properties, strategy models.MergeStrategy) models.Properties {
	out := target.Clone()

	for key, sv := range source {
		if _, never := carriedNever[key]; never {
			continue
		}
		if strings.HasPrefix(key, "_") || sv.IsEmpty() {
			continue
		}

		tv, exists := out[key]
		if !exists || tv.IsEmpty() {
			out[key] = sv
			continue
		}

		switch strategy {
		case models.StrategyPreferSource:
			out[key] = sv
		case models.StrategyPreferTarget:
			// keep target value
		case models.StrategyMergeAll:
			if tv.Equal(sv) {
				continue
			}
			if tv.Kind == models.PropertyKindString && sv.Kind == models.PropertyKindString {
				out[key] = models.StringValue(tv.Str + "; " + sv.Str)
			}
			// differing non-string values keep the target side
		}
	}

	return out
}
