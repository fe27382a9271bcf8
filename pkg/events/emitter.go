// Package events emits resolution lifecycle events.
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/briar/pkg/kafka"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

// Emitter publishes merge and undo events. A nil producer disables emission,
// which keeps the orchestration layer identical with and without Kafka.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates an event emitter.
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitEntityMerged emits an entity.merged event for a completed merge.
func (e *Emitter) EmitEntityMerged(ctx context.Context, outcome *models.MergeOutcome, strategy models.MergeStrategy, performedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitEntityMerged")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	event := &kafka.ResolutionEvent{
		EventType:   "entity.merged",
		MergeID:     outcome.MergeID,
		SourceURI:   outcome.SourceURI,
		TargetURI:   outcome.TargetURI,
		Strategy:    string(strategy),
		PerformedBy: performedBy,
	}

	if err := e.producer.PublishResolutionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit entity.merged event")
		return err
	}

	return nil
}

// EmitMergeUndone emits a merge.undone event after a successful undo.
func (e *Emitter) EmitMergeUndone(ctx context.Context, record *models.MergeRecord, performedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMergeUndone")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	event := &kafka.ResolutionEvent{
		EventType:   "merge.undone",
		MergeID:     record.MergeID,
		SourceURI:   record.SourceURI,
		TargetURI:   record.TargetURI,
		Strategy:    string(record.Strategy),
		PerformedBy: performedBy,
	}

	if err := e.producer.PublishResolutionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit merge.undone event")
		return err
	}

	return nil
}
