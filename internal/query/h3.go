package query

import (
	"strconv"

	"github.com/uber/h3-go/v4"
)

// h3ToGeo decodes an H3 cell index to its cell center (lon, lat, ok). ok is
// false when cellHex does not parse as a 64-bit hex index or is not a valid
// H3 cell, matching the source ETL's except-TypeError-returns-null-
// coordinates behavior.
func h3ToGeo(cellHex string) (lon, lat float64, ok bool) {
	raw, err := strconv.ParseUint(cellHex, 16, 64)
	if err != nil {
		return 0, 0, false
	}

	cell := h3.Cell(raw)
	if !cell.IsValid() {
		return 0, 0, false
	}

	ll := cell.LatLng()
	return ll.Lng, ll.Lat, true
}
