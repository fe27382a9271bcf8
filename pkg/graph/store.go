package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

// Labels the candidate scan never considers: document and chunk nodes share
// the graph with entities but are not resolvable.
var excludedLabels = []string{"Document", "Chunk"}

// Store implements the resolver's GraphStore over a Bolt client. Every
// entity node carries the base :Entity label plus whatever structural labels
// ingestion assigned.
type Store struct {
	client *Client
	logger ectologger.Logger
}

// NewStore creates a Store.
func NewStore(client *Client, logger ectologger.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
	}
}

// FindEntities returns labeled entities for the candidate scan.
func (s *Store) FindEntities(ctx context.Context, opts models.FindOptions) ([]models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.FindEntities")
	defer span.End()

	var where []string
	params := map[string]any{
		"limit": opts.Limit,
	}

	where = append(where, "e.label IS NOT NULL AND e.label <> ''")
	for _, label := range excludedLabels {
		where = append(where, fmt.Sprintf("NOT e:%s", sanitizeLabel(label)))
	}
	if opts.EntityType != "" {
		where = append(where, "e.entity_type = $entity_type")
		params["entity_type"] = opts.EntityType
	}
	if !opts.IncludeResolved {
		where = append(where, "e.merged_into IS NULL")
	}

	cypher := fmt.Sprintf(`
		MATCH (e:%s)
		WHERE %s
		RETURN e
		LIMIT $limit
	`, models.EntityBaseLabel, strings.Join(where, " AND "))

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		var entities []models.Entity
		for res.Next(ctx) {
			if node, ok := res.Record().Get("e"); ok {
				entities = append(entities, nodeToEntity(node.(neo4j.Node)))
			}
		}
		return entities, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan entities: %w", err)
	}

	return result.([]models.Entity), nil
}

// GetEntity returns the entity with the given uri, or nil when absent.
func (s *Store) GetEntity(ctx context.Context, uri string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.GetEntity")
	defer span.End()

	cypher := fmt.Sprintf(`
		MATCH (e:%s {uri: $uri})
		RETURN e
	`, models.EntityBaseLabel)

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"uri": uri})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			if node, ok := res.Record().Get("e"); ok {
				entity := nodeToEntity(node.(neo4j.Node))
				return &entity, nil
			}
		}
		return nil, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entity %s: %w", uri, err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*models.Entity), nil
}

// GetEntityPair fetches both sides of a merge in one round trip.
func (s *Store) GetEntityPair(ctx context.Context, uriA, uriB string) (*models.Entity, *models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.GetEntityPair")
	defer span.End()

	cypher := fmt.Sprintf(`
		OPTIONAL MATCH (a:%[1]s {uri: $uri_a})
		OPTIONAL MATCH (b:%[1]s {uri: $uri_b})
		RETURN a, b
	`, models.EntityBaseLabel)

	type pair struct {
		a *models.Entity
		b *models.Entity
	}

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"uri_a": uriA, "uri_b": uriB})
		if err != nil {
			return nil, err
		}

		out := pair{}
		if res.Next(ctx) {
			record := res.Record()
			if node, ok := record.Get("a"); ok && node != nil {
				entity := nodeToEntity(node.(neo4j.Node))
				out.a = &entity
			}
			if node, ok := record.Get("b"); ok && node != nil {
				entity := nodeToEntity(node.(neo4j.Node))
				out.b = &entity
			}
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get entity pair: %w", err)
	}

	p := result.(pair)
	return p.a, p.b, nil
}

// CreateEntity creates a node with the entity's labels and full property bag.
func (s *Store) CreateEntity(ctx context.Context, entity *models.Entity) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.CreateEntity")
	defer span.End()

	labels := entity.NodeLabels
	if len(labels) == 0 {
		labels = []string{models.EntityBaseLabel}
	}
	sanitized := make([]string, 0, len(labels))
	hasBase := false
	for _, label := range labels {
		clean := sanitizeLabel(label)
		if clean == models.EntityBaseLabel {
			hasBase = true
		}
		sanitized = append(sanitized, clean)
	}
	if !hasBase {
		sanitized = append([]string{models.EntityBaseLabel}, sanitized...)
	}

	cypher := fmt.Sprintf(`
		CREATE (e:%s)
		SET e = $props
	`, strings.Join(sanitized, ":"))

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"props": propsToGraph(entity)})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to create entity %s: %w", entity.URI, err)
	}
	return nil
}

// UpdateEntityProperties replaces the node's property bag. The bag must
// contain the uri; SET e = $props drops everything not in it.
func (s *Store) UpdateEntityProperties(ctx context.Context, uri string, props models.Properties) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.UpdateEntityProperties")
	defer span.End()

	bag := make(map[string]any, len(props)+1)
	for k, v := range props {
		bag[k] = v.GraphValue()
	}
	bag[models.PropURI] = uri

	cypher := fmt.Sprintf(`
		MATCH (e:%s {uri: $uri})
		SET e = $props
		RETURN e.uri
	`, models.EntityBaseLabel)

	result, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"uri": uri, "props": bag})
		if err != nil {
			return nil, err
		}
		return res.Next(ctx), res.Err()
	})
	if err != nil {
		return fmt.Errorf("failed to update entity %s: %w", uri, err)
	}
	if matched, ok := result.(bool); ok && !matched {
		return fmt.Errorf("entity not found: %s", uri)
	}
	return nil
}

// ListEdges returns the relationships touching the entity in one direction.
func (s *Store) ListEdges(ctx context.Context, uri string, direction models.Direction) ([]models.Edge, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.ListEdges")
	defer span.End()

	var cypher string
	if direction == models.DirectionOutgoing {
		cypher = fmt.Sprintf(`
			MATCH (e:%[1]s {uri: $uri})-[r]->(m:%[1]s)
			RETURN type(r) AS rel_type, r, e.uri AS from_uri, m.uri AS to_uri
		`, models.EntityBaseLabel)
	} else {
		cypher = fmt.Sprintf(`
			MATCH (m:%[1]s)-[r]->(e:%[1]s {uri: $uri})
			RETURN type(r) AS rel_type, r, m.uri AS from_uri, e.uri AS to_uri
		`, models.EntityBaseLabel)
	}

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"uri": uri})
		if err != nil {
			return nil, err
		}

		var edges []models.Edge
		for res.Next(ctx) {
			record := res.Record()
			edge := models.Edge{Properties: models.Properties{}}
			if v, ok := record.Get("rel_type"); ok {
				edge.Type, _ = v.(string)
			}
			if v, ok := record.Get("from_uri"); ok {
				edge.FromURI, _ = v.(string)
			}
			if v, ok := record.Get("to_uri"); ok {
				edge.ToURI, _ = v.(string)
			}
			if v, ok := record.Get("r"); ok {
				if rel, ok := v.(neo4j.Relationship); ok {
					for k, val := range rel.Props {
						edge.Properties[k] = models.PropertyFromGraphValue(val)
					}
				}
			}
			edges = append(edges, edge)
		}
		return edges, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list edges of %s: %w", uri, err)
	}

	return result.([]models.Edge), nil
}

// UpsertEdge creates the typed relationship between the endpoints if absent,
// otherwise refreshes its properties. MERGE keys on endpoints and type only,
// which is what makes relationship transfer idempotent.
func (s *Store) UpsertEdge(ctx context.Context, edge models.Edge) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.UpsertEdge")
	defer span.End()

	props := make(map[string]any, len(edge.Properties))
	for k, v := range edge.Properties {
		props[k] = v.GraphValue()
	}

	cypher := fmt.Sprintf(`
		MATCH (from:%[1]s {uri: $from_uri})
		MATCH (to:%[1]s {uri: $to_uri})
		MERGE (from)-[r:%[2]s]->(to)
		SET r += $props
	`, models.EntityBaseLabel, sanitizeLabel(edge.Type))

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"from_uri": edge.FromURI,
			"to_uri":   edge.ToURI,
			"props":    props,
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert edge %s -[%s]-> %s: %w", edge.FromURI, edge.Type, edge.ToURI, err)
	}
	return nil
}

// DeleteEntity removes the node and every relationship touching it.
func (s *Store) DeleteEntity(ctx context.Context, uri string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.DeleteEntity")
	defer span.End()

	cypher := fmt.Sprintf(`
		MATCH (e:%s {uri: $uri})
		DETACH DELETE e
	`, models.EntityBaseLabel)

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"uri": uri})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to delete entity %s: %w", uri, err)
	}
	return nil
}

// nodeToEntity converts a graph node into the engine's entity model.
func nodeToEntity(node neo4j.Node) models.Entity {
	entity := models.Entity{
		NodeLabels: node.Labels,
		Properties: make(models.Properties, len(node.Props)),
	}

	for k, v := range node.Props {
		entity.Properties[k] = models.PropertyFromGraphValue(v)
	}

	if v, ok := node.Props[models.PropURI].(string); ok {
		entity.URI = v
	}
	if v, ok := node.Props[models.PropLabel].(string); ok {
		entity.Label = v
	}
	if v, ok := node.Props[models.PropEntityType].(string); ok {
		entity.EntityType = v
	}
	if v, ok := node.Props[models.PropMergedInto].(string); ok {
		entity.MergedInto = v
	}

	return entity
}

// propsToGraph flattens an entity's property bag for the driver, making sure
// the identity fields are present.
func propsToGraph(entity *models.Entity) map[string]any {
	bag := make(map[string]any, len(entity.Properties)+3)
	for k, v := range entity.Properties {
		bag[k] = v.GraphValue()
	}
	bag[models.PropURI] = entity.URI
	if entity.Label != "" {
		bag[models.PropLabel] = entity.Label
	}
	if entity.EntityType != "" {
		bag[models.PropEntityType] = entity.EntityType
	}
	return bag
}

// sanitizeLabel ensures the label is safe for Cypher
func sanitizeLabel(label string) string {
	// Only allow alphanumeric and underscore
	result := ""
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result += string(c)
		}
	}
	if result == "" {
		return models.EntityBaseLabel
	}
	return result
}
