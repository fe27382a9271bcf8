// Package resolver implements duplicate candidate discovery, entity merging,
// merge undo, and batch auto-resolution over a property graph.
package resolver

import (
	"context"

	"github.com/Ramsey-B/briar/pkg/models"
)

// GraphStore is the graph access surface the engines depend on. The Bolt
// implementation lives in pkg/graph; tests use an in-memory fake.
type GraphStore interface {
	// FindEntities returns entities matching the filter, up to opts.Limit.
	FindEntities(ctx context.Context, opts models.FindOptions) ([]models.Entity, error)

	// GetEntity returns the entity with the given uri, or nil when absent.
	GetEntity(ctx context.Context, uri string) (*models.Entity, error)

	// GetEntityPair fetches two entities in one round trip. Either slot may
	// be nil when the uri does not exist.
	GetEntityPair(ctx context.Context, uriA, uriB string) (*models.Entity, *models.Entity, error)

	// CreateEntity creates a node with the given labels and properties.
	CreateEntity(ctx context.Context, entity *models.Entity) error

	// UpdateEntityProperties replaces the mutable property bag of a node.
	UpdateEntityProperties(ctx context.Context, uri string, props models.Properties) error

	// ListEdges returns the relationships touching the entity in the given
	// direction.
	ListEdges(ctx context.Context, uri string, direction models.Direction) ([]models.Edge, error)

	// UpsertEdge creates the relationship if no edge of the same type exists
	// between the endpoints, otherwise updates its properties in place.
	UpsertEdge(ctx context.Context, edge models.Edge) error

	// DeleteEntity removes the node and all relationships touching it.
	DeleteEntity(ctx context.Context, uri string) error
}

// AuditSink persists merge records. The Postgres implementation lives in
// internal/repositories/mergerecord.
type AuditSink interface {
	WriteMergeRecord(ctx context.Context, record *models.MergeRecord) error
	GetMergeRecord(ctx context.Context, mergeID string) (*models.MergeRecord, error)
	MarkUndone(ctx context.Context, mergeID string, undoneBy string) error
	ListMergeRecordsFor(ctx context.Context, uri string) ([]models.MergeRecord, error)
}
