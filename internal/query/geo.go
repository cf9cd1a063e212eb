package query

import "github.com/evandiewald/helium-arango-etl/pkg/models"

// geoLocationFromH3 builds the GeoJSON Point the Hotspots cursor embeds
// in each row, mirroring the source ETL's h3.h3_to_geo(...)[::-1] call
// and its except-TypeError fallback of {"coordinates": null}.
func geoLocationFromH3(locationHex string) models.GeoPoint {
	lon, lat, ok := h3ToGeo(locationHex)
	if !ok {
		return models.GeoPoint{Type: "Point"}
	}
	return models.GeoPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}
