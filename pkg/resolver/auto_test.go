package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/briar/pkg/models"
)

func autoResolverFixture(pairs int) (*fakeStore, *fakeSink, *AutoResolver) {
	store := newFakeStore()
	sink := newFakeSink()

	// Each pair gets a distinct label family so blocking keeps them apart.
	labels := []string{"Acme", "Borealis", "Cascade", "Drift", "Everest", "Fulcrum", "Granite", "Harbor"}
	for i := 0; i < pairs; i++ {
		label := labels[i%len(labels)] + fmt.Sprintf("%d", i)
		store.addEntity(orgEntity(fmt.Sprintf("urn:%s-a", label), label+" Corp", nil))
		store.addEntity(orgEntity(fmt.Sprintf("urn:%s-b", label), label+" Corp", nil))
	}

	logger := testLogger()
	finder := NewCandidateFinder(logger, store, FinderConfig{})
	merger := NewMergeEngine(logger, store, sink)
	return store, sink, NewAutoResolver(logger, finder, merger, models.AutoResolveOptions{})
}

func TestAutoResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("dry run counts but writes nothing", func(t *testing.T) {
		store, sink, auto := autoResolverFixture(5)

		result, err := auto.Resolve(ctx, models.AutoResolveOptions{DryRun: true})
		require.NoError(t, err)

		assert.True(t, result.DryRun)
		assert.Equal(t, 5, result.Merged)
		assert.Len(t, result.Merges, 5)
		for _, entry := range result.Merges {
			assert.True(t, entry.DryRun)
			assert.Empty(t, entry.MergeID)
		}
		assert.Zero(t, store.updates)
		assert.Zero(t, store.deletes)
		assert.Empty(t, sink.order)
	})

	t.Run("live run merges and records", func(t *testing.T) {
		store, sink, auto := autoResolverFixture(3)

		result, err := auto.Resolve(ctx, models.AutoResolveOptions{})
		require.NoError(t, err)

		assert.Equal(t, 3, result.Merged)
		assert.Empty(t, result.Errors)
		assert.Len(t, sink.order, 3)
		for _, entry := range result.Merges {
			assert.NotEmpty(t, entry.MergeID)
			gone, err := store.GetEntity(ctx, entry.SourceURI)
			require.NoError(t, err)
			assert.Nil(t, gone)
		}
	})

	t.Run("cap stops the batch", func(t *testing.T) {
		_, sink, auto := autoResolverFixture(6)

		result, err := auto.Resolve(ctx, models.AutoResolveOptions{MaxMerges: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Merged)
		assert.Len(t, sink.order, 2)
	})

	t.Run("conflicting values resolved toward the survivor", func(t *testing.T) {
		store := newFakeStore()
		sink := newFakeSink()
		store.addEntity(orgEntity("urn:a", "Acme Corp", models.Properties{
			"country": models.StringValue("US"),
		}))
		store.addEntity(orgEntity("urn:b", "Acme Corp", models.Properties{
			"country": models.StringValue("USA"),
		}))

		logger := testLogger()
		finder := NewCandidateFinder(logger, store, FinderConfig{})
		auto := NewAutoResolver(logger, finder, NewMergeEngine(logger, store, sink), models.AutoResolveOptions{})

		result, err := auto.Resolve(ctx, models.AutoResolveOptions{})
		require.NoError(t, err)
		require.Equal(t, 1, result.Merged)

		record := sink.lastRecord()
		require.NotNil(t, record)
		assert.Equal(t, models.StrategyPreferTarget, record.Strategy)

		// The surviving entity keeps its own value; nothing is concatenated.
		survivor, err := store.GetEntity(ctx, record.TargetURI)
		require.NoError(t, err)
		require.NotNil(t, survivor)
		assert.NotContains(t, survivor.Properties["country"].Str, ";")
	})

	t.Run("min score floor skips weaker candidates", func(t *testing.T) {
		store := newFakeStore()
		sink := newFakeSink()
		store.addEntity(orgEntity("urn:a", "Acme Corp", nil))
		store.addEntity(orgEntity("urn:b", "Acme Carp", nil))

		logger := testLogger()
		finder := NewCandidateFinder(logger, store, FinderConfig{})
		auto := NewAutoResolver(logger, finder, NewMergeEngine(logger, store, sink), models.AutoResolveOptions{})

		result, err := auto.Resolve(ctx, models.AutoResolveOptions{MinScore: 0.999})
		require.NoError(t, err)
		assert.Zero(t, result.Merged)
		assert.Empty(t, sink.order)
	})

	t.Run("failed merge recorded, batch continues", func(t *testing.T) {
		store, sink, auto := autoResolverFixture(3)

		// Poison one pair: updating its target fails.
		list, err := NewCandidateFinder(testLogger(), store, FinderConfig{}).Find(ctx, FindRequest{Limit: 10})
		require.NoError(t, err)
		require.NotEmpty(t, list.Candidates)
		store.failUpdate[list.Candidates[0].Entity1.URI] = fmt.Errorf("write conflict")

		result, err := auto.Resolve(ctx, models.AutoResolveOptions{})
		require.NoError(t, err)

		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Error, "write conflict")
		assert.Equal(t, 2, result.Merged)
		assert.Len(t, sink.order, 2)
	})
}
