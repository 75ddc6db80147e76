package feed_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/feed"
)

func TestDetectCity(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
		want string
	}{
		{"Tokyo Station", 35.6812, 139.7671, "Tokyo"},
		{"Dotonbori", 34.6687, 135.5013, "Osaka"},
		{"Fushimi Inari", 34.9671, 135.7727, "Kyoto"},
		{"Nara Park", 34.6851, 135.8430, "Nara"},
		{"Lake Ashi", 35.2040, 139.0260, "Hakone"},
		{"somewhere in the ocean", 10.0, 150.0, feed.DefaultCity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := feed.DetectCity(domain.Point{Lat: tt.lat, Lon: tt.lon})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKnownCities(t *testing.T) {
	cities := feed.KnownCities()
	assert.Equal(t, []string{"Tokyo", "Osaka", "Kyoto", "Nara", "Hakone"}, cities)
	assert.Contains(t, cities, feed.DefaultCity)
}
