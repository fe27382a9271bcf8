package graph

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/briar/pkg/models"
)

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "Organization", sanitizeLabel("Organization"))
	assert.Equal(t, "RELATED_TO", sanitizeLabel("RELATED_TO"))
	assert.Equal(t, "DropTable", sanitizeLabel("Drop Table;--"))
	assert.Equal(t, models.EntityBaseLabel, sanitizeLabel(""))
	assert.Equal(t, models.EntityBaseLabel, sanitizeLabel("!!!"))
}

func TestNodeToEntity(t *testing.T) {
	node := neo4j.Node{
		Labels: []string{"Entity", "Organization"},
		Props: map[string]any{
			"uri":         "urn:acme-1",
			"label":       "Acme Corp",
			"entity_type": "organization",
			"merged_into": "urn:acme-0",
			"employees":   int64(250),
			"active":      true,
		},
	}

	entity := nodeToEntity(node)

	assert.Equal(t, "urn:acme-1", entity.URI)
	assert.Equal(t, "Acme Corp", entity.Label)
	assert.Equal(t, "organization", entity.EntityType)
	assert.Equal(t, "urn:acme-0", entity.MergedInto)
	assert.Equal(t, []string{"Entity", "Organization"}, entity.NodeLabels)
	assert.Equal(t, 250.0, entity.Properties["employees"].Num)
	assert.True(t, entity.Properties["active"].Bool)
}

func TestPropsToGraph(t *testing.T) {
	entity := &models.Entity{
		URI:        "urn:acme-1",
		Label:      "Acme Corp",
		EntityType: "organization",
		Properties: models.Properties{
			"country": models.StringValue("US"),
		},
	}

	bag := propsToGraph(entity)
	assert.Equal(t, "urn:acme-1", bag["uri"])
	assert.Equal(t, "Acme Corp", bag["label"])
	assert.Equal(t, "organization", bag["entity_type"])
	assert.Equal(t, "US", bag["country"])
}
