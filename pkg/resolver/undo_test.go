package resolver

import (
	"context"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/briar/pkg/models"
)

func TestUndoEngine_Undo(t *testing.T) {
	ctx := context.Background()

	setup := func(keepSource bool) (*fakeStore, *fakeSink, *UndoEngine, string) {
		store := newFakeStore()
		sink := newFakeSink()
		store.addEntity(orgEntity("urn:acme-1", "Acme Corp", nil))
		store.addEntity(orgEntity("urn:acme-2", "ACME Corporation", models.Properties{
			"website": models.StringValue("acme.example"),
			"country": models.StringValue("US"),
		}))

		merger := NewMergeEngine(testLogger(), store, sink)
		outcome, err := merger.Merge(ctx, "urn:acme-2", "urn:acme-1", models.MergeOptions{
			KeepSource: keepSource,
			UserID:     "analyst-1",
		})
		require.NoError(t, err)

		return store, sink, NewUndoEngine(testLogger(), store, sink), outcome.MergeID
	}

	t.Run("restores hard-deleted source exactly", func(t *testing.T) {
		store, sink, undoer, mergeID := setup(false)

		restored, err := undoer.Undo(ctx, mergeID, "analyst-2")
		require.NoError(t, err)
		assert.Equal(t, "urn:acme-2", restored.URI)

		source, err := store.GetEntity(ctx, "urn:acme-2")
		require.NoError(t, err)
		require.NotNil(t, source)
		assert.Equal(t, "ACME Corporation", source.Label)
		assert.Equal(t, "acme.example", source.Properties["website"].Str)
		assert.Equal(t, "US", source.Properties["country"].Str)
		assert.Equal(t, []string{models.EntityBaseLabel, "Organization"}, source.NodeLabels)

		record, err := sink.GetMergeRecord(ctx, mergeID)
		require.NoError(t, err)
		assert.True(t, record.IsUndone)
		require.NotNil(t, record.UndoneBy)
		assert.Equal(t, "analyst-2", *record.UndoneBy)
	})

	t.Run("clears tombstone on soft-merged source", func(t *testing.T) {
		store, _, undoer, mergeID := setup(true)

		_, err := undoer.Undo(ctx, mergeID, "analyst-2")
		require.NoError(t, err)

		source, err := store.GetEntity(ctx, "urn:acme-2")
		require.NoError(t, err)
		require.NotNil(t, source)
		assert.False(t, source.IsResolved())
		assert.NotContains(t, source.Properties, models.PropMergedInto)
		assert.NotContains(t, source.Properties, models.PropIsCanonical)
	})

	t.Run("does not touch the target", func(t *testing.T) {
		store, _, undoer, mergeID := setup(false)

		before, err := store.GetEntity(ctx, "urn:acme-1")
		require.NoError(t, err)

		_, err = undoer.Undo(ctx, mergeID, "")
		require.NoError(t, err)

		after, err := store.GetEntity(ctx, "urn:acme-1")
		require.NoError(t, err)
		assert.Equal(t, before.Properties, after.Properties)
	})

	t.Run("unknown merge id returns not found", func(t *testing.T) {
		_, _, undoer, _ := setup(false)

		_, err := undoer.Undo(ctx, "no-such-merge", "")
		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, 404, httperror.GetStatusCode(err))
	})

	t.Run("double undo rejected", func(t *testing.T) {
		_, _, undoer, mergeID := setup(false)

		_, err := undoer.Undo(ctx, mergeID, "")
		require.NoError(t, err)

		_, err = undoer.Undo(ctx, mergeID, "")
		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, 400, httperror.GetStatusCode(err))
	})
}
