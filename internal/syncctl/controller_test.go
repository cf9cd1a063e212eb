package syncctl

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/evandiewald/helium-arango-etl/pkg/config"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	store, err := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{MinBlockDiffForUpdate: 50}
	return New(zerolog.Nop(), nil, cfg, store, nil)
}

func TestControllerStartsInInitPhase(t *testing.T) {
	c := newTestController(t)
	require.Equal(t, PhaseInit, c.Phase())
}

func TestControllerPhaseTransitionsArePersistedInMemory(t *testing.T) {
	c := newTestController(t)
	c.setPhase(PhaseInventorySync)
	require.Equal(t, PhaseInventorySync, c.Phase())

	c.setPhase(PhaseDynamicSync)
	require.Equal(t, PhaseDynamicSync, c.Phase())
}

func TestControllerSyncHeightTracksAgainstCurrentHeight(t *testing.T) {
	c := newTestController(t)
	c.setCurrentHeight(1000)
	c.setSyncHeight(400)

	require.Equal(t, int64(400), c.SyncHeight())
	require.Equal(t, int64(1000), c.CurrentHeight())
}

func TestControllerGetStatusReflectsHealthy(t *testing.T) {
	c := newTestController(t)
	require.True(t, c.GetStatus().Healthy)

	c.setHealthy(false)
	require.False(t, c.GetStatus().Healthy)
}
