package analytics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeCentralityNormalizesAroundMean(t *testing.T) {
	// a small line graph: A -> B -> C, all witnessing each other once
	edges := []cityEdge{
		{From: "A", To: "B", DistanceM: 1000},
		{From: "B", To: "C", DistanceM: 1000},
	}

	features := computeCentrality(edges)
	require.Len(t, features, 3)

	var total, totalNormalized float64
	for _, f := range features {
		require.False(t, math.IsNaN(f.PageRank))
		require.False(t, math.IsNaN(f.PageRankNormalized))
		total += f.PageRank
		totalNormalized += f.PageRankNormalized
	}
	require.Greater(t, total, 0.0)
	// normalized values average to 1 across the city's vertices
	require.InDelta(t, 3.0, totalNormalized, 1e-9)
}

func TestComputeCentralityZeroDistanceFallsBackToUnitWeight(t *testing.T) {
	edges := []cityEdge{{From: "A", To: "B", DistanceM: 0}}
	features := computeCentrality(edges)
	require.Len(t, features, 2)
}

func TestComputeCentralityEmptyEdgesReturnsNoFeatures(t *testing.T) {
	require.Empty(t, computeCentrality(nil))
}

func TestSafeDivHandlesZeroAndNaN(t *testing.T) {
	require.Equal(t, 0.0, safeDiv(1, 0))
	require.Equal(t, 0.0, safeDiv(0, 0))
	require.Equal(t, 2.0, safeDiv(4, 2))
}

func TestParseCityHotspotCountDecodesSingleRow(t *testing.T) {
	n, err := parseCityHotspotCount([]json.RawMessage{json.RawMessage("7")})
	require.NoError(t, err)
	require.Equal(t, 7, n)
}

func TestParseCityHotspotCountEmptyRowsIsZero(t *testing.T) {
	n, err := parseCityHotspotCount(nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestShardCitiesDistributesRoundRobin(t *testing.T) {
	shards := shardCities([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, shards, 2)
	require.ElementsMatch(t, []string{"a", "c", "e"}, shards[0])
	require.ElementsMatch(t, []string{"b", "d"}, shards[1])
}
