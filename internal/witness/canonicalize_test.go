package witness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeKeepsMostRecentDuplicate(t *testing.T) {
	// Receipts are assumed already ordered descending by time, so the
	// duplicate pair (challengee X, gateway Y) must keep the first one
	// walked here, i.e. the one with the larger Time.
	receipts := []Receipt{
		{Challengee: "X", Gateway: "Y", Time: 200, Signal: -80},
		{Challengee: "X", Gateway: "Y", Time: 100, Signal: -120},
	}

	edges := Canonicalize(receipts)
	require.Len(t, edges, 1)
	require.Equal(t, int64(200), edges[0].Time)
	require.Equal(t, -80.0, edges[0].Signal)
}

func TestCanonicalizeKeepsDistinctEdges(t *testing.T) {
	receipts := []Receipt{
		{Challengee: "X", Gateway: "Y", Time: 200},
		{Challengee: "X", Gateway: "Z", Time: 200},
		{Challengee: "A", Gateway: "Y", Time: 200},
	}

	edges := Canonicalize(receipts)
	require.Len(t, edges, 3)
}

func TestCanonicalizeKeyIsOrderSensitive(t *testing.T) {
	require.NotEqual(t, Key("X", "Y"), Key("Y", "X"))
}

func TestCanonicalizeEmptyInput(t *testing.T) {
	require.Empty(t, Canonicalize(nil))
}
