package models

import (
	"encoding/json"
	"time"
)

// MergeStrategy selects how conflicting property values are resolved.
type MergeStrategy string

const (
	StrategyPreferSource MergeStrategy = "prefer_source"
	StrategyPreferTarget MergeStrategy = "prefer_target"
	StrategyMergeAll     MergeStrategy = "merge_all"
)

// Valid reports whether the strategy is one of the recognized values.
func (s MergeStrategy) Valid() bool {
	switch s {
	case StrategyPreferSource, StrategyPreferTarget, StrategyMergeAll:
		return true
	}
	return false
}

// MergeOptions controls a single merge operation.
type MergeOptions struct {
	Strategy   MergeStrategy
	KeepSource bool
	UserID     string
}

// MergeRecord is the audit row written for every merge, carrying full
// pre-merge snapshots so the merge can be undone.
type MergeRecord struct {
	MergeID        string          `db:"merge_id" json:"merge_id"`
	SourceURI      string          `db:"source_uri" json:"source_uri"`
	TargetURI      string          `db:"target_uri" json:"target_uri"`
	Strategy       MergeStrategy   `db:"strategy" json:"strategy"`
	MergedBy       string          `db:"merged_by" json:"merged_by"`
	MergedAt       time.Time       `db:"merged_at" json:"merged_at"`
	SourceSnapshot json.RawMessage `db:"source_snapshot" json:"source_snapshot"`
	TargetSnapshot json.RawMessage `db:"target_snapshot" json:"target_snapshot"`
	SourceLabels   json.RawMessage `db:"source_labels" json:"source_labels"`
	SourceKept     bool            `db:"source_kept" json:"source_kept"`
	IsUndone       bool            `db:"is_undone" json:"is_undone"`
	UndoneAt       *time.Time      `db:"undone_at" json:"undone_at,omitempty"`
	UndoneBy       *string         `db:"undone_by" json:"undone_by,omitempty"`
}

// MergeOutcome summarizes a completed merge.
type MergeOutcome struct {
	MergeID                  string `json:"merge_id"`
	TargetURI                string `json:"target_uri"`
	SourceURI                string `json:"source_uri"`
	SourceDeleted            bool   `json:"source_deleted"`
	RelationshipsTransferred int    `json:"relationships_transferred"`
}

// AutoResolveOptions controls a batch resolution run.
type AutoResolveOptions struct {
	EntityType string
	MinScore   float64
	MaxMerges  int
	DryRun     bool
	UserID     string
}

// DefaultAutoResolveOptions returns the conservative defaults for batch runs.
func DefaultAutoResolveOptions() AutoResolveOptions {
	return AutoResolveOptions{
		MinScore:  0.85,
		MaxMerges: 50,
	}
}

// AutoResolveEntry records one pair the batch run merged or would merge.
type AutoResolveEntry struct {
	SourceURI string  `json:"source_uri"`
	TargetURI string  `json:"target_uri"`
	Score     float64 `json:"score"`
	MergeID   string  `json:"merge_id,omitempty"`
	DryRun    bool    `json:"dry_run"`
}

// AutoResolveError records a candidate the batch run failed to merge.
type AutoResolveError struct {
	SourceURI string `json:"source_uri"`
	TargetURI string `json:"target_uri"`
	Error     string `json:"error"`
}

// AutoResolveResult summarizes a batch resolution run.
type AutoResolveResult struct {
	Processed int                `json:"processed"`
	Merged    int                `json:"merged"`
	Skipped   int                `json:"skipped"`
	DryRun    bool               `json:"dry_run"`
	Merges    []AutoResolveEntry `json:"merges"`
	Errors    []AutoResolveError `json:"errors,omitempty"`
}
