package feed

import "github.com/place-sync-service/internal/domain"

// cityRegion is a named rectangular bounding box. Regions are checked in
// order; the first containing box wins.
type cityRegion struct {
	city string
	box  domain.BoundingBox
}

var cityRegions = []cityRegion{
	{"Tokyo", domain.BoundingBox{MinLat: 35.40, MinLon: 139.30, MaxLat: 36.00, MaxLon: 140.10}},
	{"Osaka", domain.BoundingBox{MinLat: 34.40, MinLon: 135.30, MaxLat: 34.85, MaxLon: 135.70}},
	{"Kyoto", domain.BoundingBox{MinLat: 34.90, MinLon: 135.60, MaxLat: 35.20, MaxLon: 135.90}},
	{"Nara", domain.BoundingBox{MinLat: 34.55, MinLon: 135.70, MaxLat: 34.75, MaxLon: 135.95}},
	{"Hakone", domain.BoundingBox{MinLat: 35.15, MinLon: 138.95, MaxLat: 35.30, MaxLon: 139.15}},
}

// DefaultCity is used when no bounding box matches.
const DefaultCity = "Tokyo"

// DetectCity infers the city for a coordinate pair from the known bounding
// boxes. Points matching no box fall back to the first-listed city.
func DetectCity(p domain.Point) string {
	for _, region := range cityRegions {
		if region.box.Contains(p) {
			return region.city
		}
	}
	return DefaultCity
}

// KnownCities lists the cities the detector can produce, in detection order.
func KnownCities() []string {
	cities := make([]string, 0, len(cityRegions))
	for _, region := range cityRegions {
		cities = append(cities, region.city)
	}
	return cities
}
