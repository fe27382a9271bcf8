// Package mergerecord persists the merge audit trail in Postgres.
package mergerecord

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/briar/pkg/database"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

const table = "merge_records"

var columns = []string{
	"merge_id", "source_uri", "target_uri", "strategy", "merged_by", "merged_at",
	"source_snapshot", "target_snapshot", "source_labels", "source_kept",
	"is_undone", "undone_at", "undone_by",
}

// Repository implements the resolver's AuditSink over Postgres.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a merge record repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// WriteMergeRecord inserts the audit row for a completed merge.
func (r *Repository) WriteMergeRecord(ctx context.Context, record *models.MergeRecord) error {
	ctx, span := tracing.StartSpan(ctx, "mergerecord.Repository.WriteMergeRecord")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(
		record.MergeID, record.SourceURI, record.TargetURI, record.Strategy,
		record.MergedBy, record.MergedAt,
		[]byte(record.SourceSnapshot), []byte(record.TargetSnapshot), []byte(record.SourceLabels),
		record.SourceKept, record.IsUndone, record.UndoneAt, record.UndoneBy,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"merge_id": record.MergeID}).Error("Failed to write merge record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to write merge record")
	}

	return nil
}

// GetMergeRecord fetches one record by id. Returns nil when absent; the
// caller decides whether that is an error.
func (r *Repository) GetMergeRecord(ctx context.Context, mergeID string) (*models.MergeRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "mergerecord.Repository.GetMergeRecord")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("merge_id", mergeID))

	query, args := sb.Build()
	var record models.MergeRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get merge record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge record")
	}

	return &record, nil
}

// MarkUndone flags a record as undone. Fails when the record is missing or
// already undone, which keeps undo single-shot even under a racing retry.
func (r *Repository) MarkUndone(ctx context.Context, mergeID string, undoneBy string) error {
	ctx, span := tracing.StartSpan(ctx, "mergerecord.Repository.MarkUndone")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("is_undone", true),
		ub.Assign("undone_at", models.Now()),
		ub.Assign("undone_by", undoneBy),
	)
	ub.Where(
		ub.Equal("merge_id", mergeID),
		ub.Equal("is_undone", false),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark merge record undone")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark merge record undone")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark merge record undone")
	}
	if affected == 0 {
		return httperror.NewHTTPError(http.StatusConflict, "merge record missing or already undone")
	}

	return nil
}

// ListMergeRecordsFor returns every record touching the uri, newest first.
func (r *Repository) ListMergeRecordsFor(ctx context.Context, uri string) ([]models.MergeRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "mergerecord.Repository.ListMergeRecordsFor")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Or(
		sb.Equal("source_uri", uri),
		sb.Equal("target_uri", uri),
	))
	sb.OrderBy("merged_at").Desc()

	query, args := sb.Build()
	records := []models.MergeRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list merge records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list merge records")
	}

	return records, nil
}
