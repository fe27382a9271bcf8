package resolver

import (
	"context"
	"sync"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/briar/pkg/models"
)

func serviceFixture() (*fakeStore, *Service) {
	store := newFakeStore()
	sink := newFakeSink()
	store.addEntity(orgEntity("urn:acme-1", "Acme Corp", nil))
	store.addEntity(orgEntity("urn:acme-2", "ACME Corporation", nil))
	return store, NewService(testLogger(), store, sink, Config{})
}

func TestService_Merge(t *testing.T) {
	ctx := context.Background()

	t.Run("re-merge of soft-merged source rejected", func(t *testing.T) {
		_, svc := serviceFixture()

		_, err := svc.Merge(ctx, "urn:acme-2", "urn:acme-1", models.MergeOptions{KeepSource: true})
		require.NoError(t, err)

		_, err = svc.Merge(ctx, "urn:acme-2", "urn:acme-1", models.MergeOptions{KeepSource: true})
		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, 409, httperror.GetStatusCode(err))
	})

	t.Run("concurrent merges into one target serialize", func(t *testing.T) {
		store, svc := serviceFixture()
		for _, e := range []models.Entity{
			orgEntity("urn:acme-3", "Acme Corp Intl", nil),
			orgEntity("urn:acme-4", "Acme Corp Group", nil),
		} {
			store.addEntity(e)
		}

		var wg sync.WaitGroup
		sources := []string{"urn:acme-2", "urn:acme-3", "urn:acme-4"}
		for _, source := range sources {
			wg.Add(1)
			go func(uri string) {
				defer wg.Done()
				_, err := svc.Merge(ctx, uri, "urn:acme-1", models.MergeOptions{})
				assert.NoError(t, err)
			}(source)
		}
		wg.Wait()

		target, err := store.GetEntity(ctx, "urn:acme-1")
		require.NoError(t, err)
		assert.Equal(t, 3.0, target.Properties[models.PropMergeCount].Num)
	})
}

func TestService_GetMergeHistory(t *testing.T) {
	ctx := context.Background()
	_, svc := serviceFixture()

	outcome, err := svc.Merge(ctx, "urn:acme-2", "urn:acme-1", models.MergeOptions{UserID: "analyst-1"})
	require.NoError(t, err)

	history, err := svc.GetMergeHistory(ctx, "urn:acme-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, outcome.MergeID, history[0].MergeID)

	bySource, err := svc.GetMergeHistory(ctx, "urn:acme-2")
	require.NoError(t, err)
	assert.Len(t, bySource, 1)

	empty, err := svc.GetMergeHistory(ctx, "urn:nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestService_UndoRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, svc := serviceFixture()

	outcome, err := svc.Merge(ctx, "urn:acme-2", "urn:acme-1", models.MergeOptions{})
	require.NoError(t, err)

	restored, err := svc.Undo(ctx, outcome.MergeID, "analyst-2")
	require.NoError(t, err)
	assert.Equal(t, "urn:acme-2", restored.URI)

	source, err := store.GetEntity(ctx, "urn:acme-2")
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Equal(t, "ACME Corporation", source.Label)
}
