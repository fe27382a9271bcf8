package models

// FindCandidatesRequest is the query surface for candidate discovery.
type FindCandidatesRequest struct {
	EntityType      string  `query:"entity_type"`
	Limit           int     `query:"limit" validate:"omitempty,min=1,max=500"`
	MinScore        float64 `query:"min_score" validate:"omitempty,min=0,max=1"`
	IncludeResolved bool    `query:"include_resolved"`
}

// MergeRequest is the body for a manual merge.
type MergeRequest struct {
	SourceURI  string `json:"source_uri" validate:"required"`
	TargetURI  string `json:"target_uri" validate:"required,nefield=SourceURI"`
	Strategy   string `json:"strategy" validate:"omitempty,oneof=prefer_source prefer_target merge_all"`
	KeepSource bool   `json:"keep_source"`
}

// AutoResolveRequest is the body for a batch resolution run.
type AutoResolveRequest struct {
	EntityType string  `json:"entity_type"`
	MinScore   float64 `json:"min_score" validate:"omitempty,min=0,max=1"`
	MaxMerges  int     `json:"max_merges" validate:"omitempty,min=1,max=500"`
	DryRun     bool    `json:"dry_run"`
}
