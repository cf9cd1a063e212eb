package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeoLocationFromH3ValidCell(t *testing.T) {
	loc := geoLocationFromH3("8a2a1072b59ffff")
	require.Equal(t, "Point", loc.Type)
	require.NotNil(t, loc.Coordinates)
}

func TestGeoLocationFromH3MalformedInputReturnsNullCoordinates(t *testing.T) {
	loc := geoLocationFromH3("not-a-valid-cell")
	require.Equal(t, "Point", loc.Type)
	require.Nil(t, loc.Coordinates)
}

func TestGeoLocationFromH3EmptyInputReturnsNullCoordinates(t *testing.T) {
	loc := geoLocationFromH3("")
	require.Nil(t, loc.Coordinates)
}
