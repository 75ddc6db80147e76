package feed

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/pkg/errors"
)

// kmlPlacemark is one placemark block. Name and Description may be
// CDATA-wrapped; encoding/xml handles both forms.
type kmlPlacemark struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Coordinates string `xml:"Point>coordinates"`
}

// parseKML extracts placemarks from an XML map export. Placemarks can be
// nested arbitrarily deep in Document/Folder elements, so the decoder walks
// tokens instead of assuming a fixed hierarchy. A placemark without a
// parseable coordinate pair is dropped silently: real feeds routinely carry
// markers without geometry.
func parseKML(raw []byte, logger *zap.Logger) ([]domain.Place, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))

	rootSeen := false
	var places []domain.Place
	dropped := 0

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ErrFormatInvalid.WithDetails(map[string]interface{}{
				"reason": "malformed XML: " + err.Error(),
			})
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !rootSeen {
			if !strings.EqualFold(start.Name.Local, "kml") {
				return nil, errors.ErrFormatInvalid.WithDetails(map[string]interface{}{
					"reason": "missing kml root element",
					"root":   start.Name.Local,
				})
			}
			rootSeen = true
			continue
		}

		if start.Name.Local != "Placemark" {
			continue
		}

		var pm kmlPlacemark
		if err := decoder.DecodeElement(&pm, &start); err != nil {
			return nil, errors.ErrFormatInvalid.WithDetails(map[string]interface{}{
				"reason": "malformed placemark: " + err.Error(),
			})
		}

		name := strings.TrimSpace(pm.Name)
		point, ok := parseKMLCoordinates(pm.Coordinates)
		if name == "" || !ok {
			dropped++
			continue
		}

		description := strings.TrimSpace(pm.Description)
		places = append(places, buildPlace(name, description, point))
	}

	if !rootSeen {
		return nil, errors.ErrFormatInvalid.WithDetails(map[string]interface{}{
			"reason": "payload contains no XML root element",
		})
	}

	if dropped > 0 {
		logger.Debug("Dropped placemarks without usable name or geometry",
			zap.Int("dropped", dropped))
	}

	return places, nil
}

// parseKMLCoordinates parses a "lon,lat,alt" triple; altitude is optional.
func parseKMLCoordinates(s string) (domain.Point, bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 {
		return domain.Point{}, false
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Point{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Point{}, false
	}

	return domain.Point{Lat: lat, Lon: lon}, true
}
