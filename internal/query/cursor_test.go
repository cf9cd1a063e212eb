package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatchStateAdvanceStaysIncomplete(t *testing.T) {
	state := NewBatchState(100)
	require.Equal(t, int64(100), state.Limit())
	require.Equal(t, int64(0), state.Offset())

	state.Advance(100)
	require.False(t, state.Complete)
	require.Equal(t, int64(100), state.Offset())
	require.Equal(t, int64(200), state.SliceEnd)
}

func TestBatchStateAdvanceCompletesOnShortBatch(t *testing.T) {
	state := NewBatchState(100)
	state.Advance(42)
	require.True(t, state.Complete)
}

func TestBatchStateAdvanceCompletesOnEmptyBatch(t *testing.T) {
	state := NewBatchState(100)
	state.Advance(0)
	require.True(t, state.Complete)
}
