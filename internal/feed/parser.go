package feed

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/pkg/utils"
)

// Parser turns raw external feed payloads into canonical place records.
// Parsing is a pure transformation: identity keys, source attribution and
// timestamps are assigned later, when the store actually creates records.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse decodes the payload according to the declared format.
func (p *Parser) Parse(raw []byte, format domain.FeedFormat) ([]domain.Place, error) {
	switch format {
	case domain.FormatJSONList:
		return parseJSONList(raw, p.logger)
	default:
		return parseKML(raw, p.logger)
	}
}

// DetectFormat classifies a payload when the source configuration carries no
// explicit format. The guard prefix or a JSON opener marks the list format;
// everything else falls back to KML, which covers payloads opening with "<".
func DetectFormat(raw []byte) domain.FeedFormat {
	trimmed := bytes.TrimSpace(raw)

	if bytes.HasPrefix(trimmed, []byte(jsonGuardPrefix)) {
		return domain.FormatJSONList
	}
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return domain.FormatJSONList
	}

	return domain.FormatKML
}

// buildPlace assembles the canonical record shared by both parsers: category
// from keyword inference, city from the bounding boxes, id from the name.
func buildPlace(name, description string, point domain.Point) domain.Place {
	return domain.Place{
		ID:          utils.Slugify(name),
		Name:        name,
		Category:    Categorize(name, description),
		City:        DetectCity(point),
		Coordinates: &domain.Point{Lat: point.Lat, Lon: point.Lon},
		Description: description,
	}
}
