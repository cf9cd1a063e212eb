package syncctl

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evandiewald/helium-arango-etl/pkg/models"
)

func TestCheckpointStoreLoadMissingReturnsNil(t *testing.T) {
	store, err := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	defer store.Close()

	cp, err := store.Load(context.Background(), "helium-arango-etl")
	require.NoError(t, err)
	require.Nil(t, cp)
}

func TestCheckpointStoreSaveAndLoadRoundTrips(t *testing.T) {
	store, err := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	want := models.Checkpoint{
		ServiceName:   "helium-arango-etl",
		Phase:         string(PhaseDynamicSync),
		SyncHeight:    100,
		CurrentHeight: 200,
		CurrentTime:   1700000000,
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx, "helium-arango-etl")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want.Phase, got.Phase)
	require.Equal(t, want.SyncHeight, got.SyncHeight)
	require.Equal(t, want.CurrentHeight, got.CurrentHeight)
	require.NotZero(t, got.UpdatedAtUnix)
}

func TestCheckpointStoreSaveOverwritesPriorState(t *testing.T) {
	store, err := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, models.Checkpoint{ServiceName: "svc", SyncHeight: 1}))
	require.NoError(t, store.Save(ctx, models.Checkpoint{ServiceName: "svc", SyncHeight: 2}))

	got, err := store.Load(ctx, "svc")
	require.NoError(t, err)
	require.Equal(t, int64(2), got.SyncHeight)
}
