package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

// UndoEngine restores a merged-away source entity from its audit snapshot.
// Relationship transfers and property changes applied to the target are not
// reversed; undo recovers the source node, not the full pre-merge world.
type UndoEngine struct {
	logger ectologger.Logger
	store  GraphStore
	sink   AuditSink
}

// NewUndoEngine creates an UndoEngine.
func NewUndoEngine(logger ectologger.Logger, store GraphStore, sink AuditSink) *UndoEngine {
	return &UndoEngine{
		logger: logger,
		store:  store,
		sink:   sink,
	}
}

// Undo restores the source entity of the given merge and marks the record
// undone. Fails with 404 when the record does not exist and 400 when the
// merge was already undone.
func (e *UndoEngine) Undo(ctx context.Context, mergeID string, undoneBy string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.UndoEngine.Undo")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"merge_id": mergeID,
	})

	record, err := e.sink.GetMergeRecord(ctx, mergeID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("merge record not found: %s", mergeID))
	}
	if record.IsUndone {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("merge %s was already undone", mergeID))
	}

	var source models.Entity
	if err := json.Unmarshal(record.SourceSnapshot, &source); err != nil {
		return nil, fmt.Errorf("failed to decode source snapshot for merge %s: %w", mergeID, err)
	}
	if len(record.SourceLabels) > 0 {
		var labels []string
		if err := json.Unmarshal(record.SourceLabels, &labels); err != nil {
			return nil, fmt.Errorf("failed to decode source labels for merge %s: %w", mergeID, err)
		}
		source.NodeLabels = labels
	}

	if record.SourceKept {
		// Soft merge: the node still exists, drop the tombstone markers.
		restored := source.Properties.Clone()
		delete(restored, models.PropMergedInto)
		delete(restored, models.PropMergedAt)
		delete(restored, models.PropIsCanonical)
		if err := e.store.UpdateEntityProperties(ctx, source.URI, restored); err != nil {
			return nil, fmt.Errorf("failed to restore soft-merged entity %s: %w", source.URI, err)
		}
	} else {
		if err := e.store.CreateEntity(ctx, &source); err != nil {
			return nil, fmt.Errorf("failed to recreate entity %s: %w", source.URI, err)
		}
	}

	if err := e.sink.MarkUndone(ctx, mergeID, undoneBy); err != nil {
		return nil, fmt.Errorf("failed to mark merge %s undone: %w", mergeID, err)
	}

	log.WithFields(map[string]any{
		"source_uri": source.URI,
		"target_uri": record.TargetURI,
	}).Info("merge undone")

	return &source, nil
}
