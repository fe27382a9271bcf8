package resolver

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

// Service is the orchestration facade over the resolution engines. Merges
// against the same target are serialized through a per-target mutex so two
// concurrent requests cannot interleave their snapshot/update/transfer steps.
type Service struct {
	logger ectologger.Logger
	store  GraphStore
	sink   AuditSink
	finder *CandidateFinder
	merger *MergeEngine
	undoer *UndoEngine
	auto   *AutoResolver

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Config tunes the service's engines.
type Config struct {
	Finder      FinderConfig
	AutoResolve models.AutoResolveOptions
}

// NewService wires the engines into a Service.
func NewService(logger ectologger.Logger, store GraphStore, sink AuditSink, cfg Config) *Service {
	finder := NewCandidateFinder(logger, store, cfg.Finder)
	merger := NewMergeEngine(logger, store, sink)
	return &Service{
		logger: logger,
		store:  store,
		sink:   sink,
		finder: finder,
		merger: merger,
		undoer: NewUndoEngine(logger, store, sink),
		auto:   NewAutoResolver(logger, finder, merger, cfg.AutoResolve),
		locks:  make(map[string]*sync.Mutex),
	}
}

// FindCandidates scans for likely duplicate pairs.
func (s *Service) FindCandidates(ctx context.Context, req FindRequest) (*models.CandidateList, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.FindCandidates")
	defer span.End()

	return s.finder.Find(ctx, req)
}

// Merge folds source into target, holding the target's merge lock for the
// duration. Re-merging a source that was already soft-merged into the same
// target is rejected.
func (s *Service) Merge(ctx context.Context, sourceURI, targetURI string, opts models.MergeOptions) (*models.MergeOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.Merge")
	defer span.End()

	unlock := s.lockTarget(targetURI)
	defer unlock()

	source, err := s.store.GetEntity(ctx, sourceURI)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch merge source: %w", err)
	}
	if source != nil && source.MergedInto == targetURI {
		return nil, httperror.NewHTTPError(http.StatusConflict,
			fmt.Sprintf("entity %s is already merged into %s", sourceURI, targetURI))
	}

	return s.merger.Merge(ctx, sourceURI, targetURI, opts)
}

// AutoResolve runs a batch resolution pass.
func (s *Service) AutoResolve(ctx context.Context, opts models.AutoResolveOptions) (*models.AutoResolveResult, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.AutoResolve")
	defer span.End()

	return s.auto.Resolve(ctx, opts)
}

// Undo restores the source entity of a past merge.
func (s *Service) Undo(ctx context.Context, mergeID string, undoneBy string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.Undo")
	defer span.End()

	return s.undoer.Undo(ctx, mergeID, undoneBy)
}

// GetMergeHistory lists the merge records touching an entity, newest first.
func (s *Service) GetMergeHistory(ctx context.Context, uri string) ([]models.MergeRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.GetMergeHistory")
	defer span.End()

	records, err := s.sink.ListMergeRecordsFor(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to list merge records for %s: %w", uri, err)
	}
	return records, nil
}

// GetMergeRecord fetches a single merge record.
func (s *Service) GetMergeRecord(ctx context.Context, mergeID string) (*models.MergeRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.GetMergeRecord")
	defer span.End()

	return s.sink.GetMergeRecord(ctx, mergeID)
}

// lockTarget returns the unlock function for the target's merge mutex.
// Mutexes are created on demand and kept for the life of the service; the
// set of actively merged targets is small.
func (s *Service) lockTarget(targetURI string) func() {
	s.mu.Lock()
	lock, ok := s.locks[targetURI]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[targetURI] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
