package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/briar/pkg/models"
)

func TestPrefixBlocking(t *testing.T) {
	blocking := PrefixBlocking(3, 2)

	tests := []struct {
		name   string
		labelA string
		labelB string
		pass   bool
	}{
		{"same prefix", "Acme Corp", "ACME Corporation", true},
		{"close prefix", "Akme Corp", "Acme Corp", true},
		{"short labels", "Al", "Al Inc", true},
		{"distant prefix", "Acme Corp", "Zenith Widgets", false},
		{"empty label", "", "Acme Corp", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &models.Entity{Label: tt.labelA}
			b := &models.Entity{Label: tt.labelB}
			assert.Equal(t, tt.pass, blocking(a, b))
		})
	}
}

func TestSoundexBlocking(t *testing.T) {
	blocking := SoundexBlocking()

	a := &models.Entity{Label: "Robert Smith"}
	b := &models.Entity{Label: "Rupert Smith"}
	c := &models.Entity{Label: "Margaret Smith"}

	assert.True(t, blocking(a, b))
	assert.False(t, blocking(a, c))
}

func TestCandidateFinder_Find(t *testing.T) {
	ctx := context.Background()

	setup := func() (*fakeStore, *CandidateFinder) {
		store := newFakeStore()
		store.addEntity(orgEntity("urn:acme-1", "Acme Corp", nil))
		store.addEntity(orgEntity("urn:acme-2", "ACME Corporation", nil))
		store.addEntity(orgEntity("urn:acme-3", "Acme Corp", nil))
		store.addEntity(orgEntity("urn:zenith", "Zenith Widgets", nil))
		return store, NewCandidateFinder(testLogger(), store, FinderConfig{})
	}

	t.Run("scores pairs best first", func(t *testing.T) {
		_, finder := setup()

		list, err := finder.Find(ctx, FindRequest{Limit: 10})
		require.NoError(t, err)

		require.NotEmpty(t, list.Candidates)
		for i := 1; i < len(list.Candidates); i++ {
			assert.GreaterOrEqual(t, list.Candidates[i-1].Score, list.Candidates[i].Score)
		}

		best := list.Candidates[0]
		assert.Equal(t, 1.0, best.Score)
		assert.Equal(t, models.ConfidenceExact, best.Confidence)
		uris := []string{best.Entity1.URI, best.Entity2.URI}
		assert.ElementsMatch(t, []string{"urn:acme-1", "urn:acme-3"}, uris)
	})

	t.Run("blocking discards distant pairs", func(t *testing.T) {
		_, finder := setup()

		list, err := finder.Find(ctx, FindRequest{Limit: 10})
		require.NoError(t, err)

		for _, candidate := range list.Candidates {
			assert.NotEqual(t, "urn:zenith", candidate.Entity1.URI)
			assert.NotEqual(t, "urn:zenith", candidate.Entity2.URI)
		}
	})

	t.Run("truncates to limit but reports total", func(t *testing.T) {
		_, finder := setup()

		list, err := finder.Find(ctx, FindRequest{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, list.Candidates, 1)
		assert.GreaterOrEqual(t, list.TotalFound, 1)
	})

	t.Run("resolved entities excluded by default", func(t *testing.T) {
		store, finder := setup()
		store.addEntity(models.Entity{
			URI:        "urn:acme-4",
			Label:      "Acme Corp",
			EntityType: "organization",
			MergedInto: "urn:acme-1",
			Properties: models.Properties{},
		})

		list, err := finder.Find(ctx, FindRequest{Limit: 10})
		require.NoError(t, err)
		for _, candidate := range list.Candidates {
			assert.NotEqual(t, "urn:acme-4", candidate.Entity1.URI)
			assert.NotEqual(t, "urn:acme-4", candidate.Entity2.URI)
		}
	})

	t.Run("min score floor respected", func(t *testing.T) {
		_, finder := setup()

		list, err := finder.Find(ctx, FindRequest{Limit: 10, MinScore: 0.99})
		require.NoError(t, err)
		for _, candidate := range list.Candidates {
			assert.GreaterOrEqual(t, candidate.Score, 0.99)
		}
	})

	t.Run("entity type filter applied", func(t *testing.T) {
		store, finder := setup()
		store.addEntity(models.Entity{
			URI:        "urn:person-1",
			Label:      "Acme Corp",
			EntityType: "person",
			Properties: models.Properties{},
		})

		list, err := finder.Find(ctx, FindRequest{EntityType: "organization", Limit: 10})
		require.NoError(t, err)
		for _, candidate := range list.Candidates {
			assert.Equal(t, "organization", candidate.Entity1.EntityType)
			assert.Equal(t, "organization", candidate.Entity2.EntityType)
		}
	})

	t.Run("thresholds echoed in result", func(t *testing.T) {
		_, finder := setup()

		list, err := finder.Find(ctx, FindRequest{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, models.DefaultThresholds(), list.Thresholds)
	})
}
