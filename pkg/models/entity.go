package models

import "time"

// Base node label applied to every resolvable entity in the graph.
const EntityBaseLabel = "Entity"

// Property keys managed by the engine itself. They are never copied between
// entities during a merge.
const (
	PropURI             = "uri"
	PropConceptID       = "concept_id"
	PropCreatedAt       = "created_at"
	PropLabel           = "label"
	PropEntityType      = "entity_type"
	PropDescription     = "description"
	PropMergedInto      = "merged_into"
	PropMergedAt        = "merged_at"
	PropIsCanonical     = "is_canonical"
	PropMergeCount      = "merge_count"
	PropLastMergedAt    = "last_merged_at"
	PropTransferredFrom = "transferred_from"
)

// Entity is a node in the property graph as seen by the resolution engine.
// Properties holds the full bag, including the identity and display fields;
// Label, EntityType and MergedInto are surfaced as fields for convenience.
type Entity struct {
	URI        string     `json:"uri"`
	Label      string     `json:"label"`
	EntityType string     `json:"entity_type"`
	MergedInto string     `json:"merged_into,omitempty"`
	NodeLabels []string   `json:"node_labels,omitempty"`
	Properties Properties `json:"properties"`
}

// Description returns the entity's description property, if any.
func (e *Entity) Description() string {
	if v, ok := e.Properties[PropDescription]; ok {
		return v.Str
	}
	return ""
}

// IsResolved reports whether the entity has been soft-merged into another.
func (e *Entity) IsResolved() bool {
	return e.MergedInto != ""
}

// Direction of a relationship relative to an entity.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Edge is a directed, typed relationship between two entities.
type Edge struct {
	Type       string     `json:"type"`
	FromURI    string     `json:"from_uri"`
	ToURI      string     `json:"to_uri"`
	Properties Properties `json:"properties,omitempty"`
}

// FindOptions filters the entity scan used for candidate discovery.
type FindOptions struct {
	EntityType      string
	IncludeResolved bool
	Limit           int
}

// Now is the clock used when stamping merge metadata. Overridable in tests.
var Now = func() time.Time { return time.Now().UTC() }
