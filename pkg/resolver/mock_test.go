package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/briar/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// fakeStore is an in-memory GraphStore for engine tests.
type fakeStore struct {
	mu       sync.Mutex
	entities map[string]*models.Entity
	edges    []models.Edge

	updates int
	deletes int
	upserts int
	creates int

	failUpdate map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entities:   make(map[string]*models.Entity),
		failUpdate: make(map[string]error),
	}
}

func (s *fakeStore) addEntity(e models.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Properties == nil {
		e.Properties = models.Properties{}
	}
	if _, ok := e.Properties[models.PropURI]; !ok {
		e.Properties[models.PropURI] = models.StringValue(e.URI)
	}
	copied := e
	s.entities[e.URI] = &copied
}

func (s *fakeStore) addEdge(edgeType, from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = append(s.edges, models.Edge{
		Type:       edgeType,
		FromURI:    from,
		ToURI:      to,
		Properties: models.Properties{},
	})
}

func (s *fakeStore) FindEntities(_ context.Context, opts models.FindOptions) ([]models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Entity
	for _, e := range s.entities {
		if opts.EntityType != "" && e.EntityType != opts.EntityType {
			continue
		}
		if !opts.IncludeResolved && e.IsResolved() {
			continue
		}
		out = append(out, *e)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) GetEntity(_ context.Context, uri string) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[uri]
	if !ok {
		return nil, nil
	}
	copied := *e
	copied.Properties = e.Properties.Clone()
	return &copied, nil
}

func (s *fakeStore) GetEntityPair(ctx context.Context, uriA, uriB string) (*models.Entity, *models.Entity, error) {
	a, err := s.GetEntity(ctx, uriA)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.GetEntity(ctx, uriB)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (s *fakeStore) CreateEntity(_ context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[entity.URI]; exists {
		return fmt.Errorf("entity already exists: %s", entity.URI)
	}
	s.creates++
	copied := *entity
	copied.Properties = entity.Properties.Clone()
	s.entities[entity.URI] = &copied
	return nil
}

func (s *fakeStore) UpdateEntityProperties(_ context.Context, uri string, props models.Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failUpdate[uri]; ok {
		return err
	}
	e, ok := s.entities[uri]
	if !ok {
		return fmt.Errorf("entity not found: %s", uri)
	}
	s.updates++
	e.Properties = props.Clone()
	if v, ok := props[models.PropMergedInto]; ok {
		e.MergedInto = v.Str
	} else {
		e.MergedInto = ""
	}
	if v, ok := props[models.PropLabel]; ok {
		e.Label = v.Str
	}
	return nil
}

func (s *fakeStore) ListEdges(_ context.Context, uri string, direction models.Direction) ([]models.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Edge
	for _, edge := range s.edges {
		if direction == models.DirectionOutgoing && edge.FromURI == uri {
			out = append(out, edge)
		}
		if direction == models.DirectionIncoming && edge.ToURI == uri {
			out = append(out, edge)
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertEdge(_ context.Context, edge models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	for i, existing := range s.edges {
		if existing.Type == edge.Type && existing.FromURI == edge.FromURI && existing.ToURI == edge.ToURI {
			s.edges[i].Properties = edge.Properties.Clone()
			return nil
		}
	}
	s.edges = append(s.edges, edge)
	return nil
}

func (s *fakeStore) DeleteEntity(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[uri]; !ok {
		return fmt.Errorf("entity not found: %s", uri)
	}
	s.deletes++
	delete(s.entities, uri)

	var kept []models.Edge
	for _, edge := range s.edges {
		if edge.FromURI == uri || edge.ToURI == uri {
			continue
		}
		kept = append(kept, edge)
	}
	s.edges = kept
	return nil
}

func (s *fakeStore) edgesBetween(from, to string) []models.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Edge
	for _, edge := range s.edges {
		if edge.FromURI == from && edge.ToURI == to {
			out = append(out, edge)
		}
	}
	return out
}

// fakeSink is an in-memory AuditSink.
type fakeSink struct {
	mu      sync.Mutex
	records map[string]*models.MergeRecord
	order   []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{records: make(map[string]*models.MergeRecord)}
}

func (s *fakeSink) WriteMergeRecord(_ context.Context, record *models.MergeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.records[record.MergeID] = &copied
	s.order = append(s.order, record.MergeID)
	return nil
}

func (s *fakeSink) GetMergeRecord(_ context.Context, mergeID string) (*models.MergeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[mergeID]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *fakeSink) MarkUndone(_ context.Context, mergeID string, undoneBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[mergeID]
	if !ok {
		return fmt.Errorf("merge record not found: %s", mergeID)
	}
	now := models.Now()
	record.IsUndone = true
	record.UndoneAt = &now
	record.UndoneBy = &undoneBy
	return nil
}

func (s *fakeSink) ListMergeRecordsFor(_ context.Context, uri string) ([]models.MergeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MergeRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		record := s.records[s.order[i]]
		if record.SourceURI == uri || record.TargetURI == uri {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (s *fakeSink) lastRecord() *models.MergeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return nil
	}
	return s.records[s.order[len(s.order)-1]]
}
