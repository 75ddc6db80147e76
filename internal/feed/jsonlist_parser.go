package feed

import (
	"bytes"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/pkg/errors"
)

// jsonGuardPrefix is the fixed anti-hijacking prefix the list endpoint
// prepends to its response. It must be stripped before decoding.
const jsonGuardPrefix = ")]}'"

// Entry slots in the fixed-position list format:
// [name, null, null, [lon, lat], null, description]
const (
	slotName        = 0
	slotCoordinates = 3
	slotDescription = 5
	entrySlots      = 6
)

// parseJSONList decodes the proprietary nested-array list format. Entries sit
// at a fixed path (top[0][1]) rather than behind keys. An entry whose
// coordinate slot is null is dropped silently.
func parseJSONList(raw []byte, logger *zap.Logger) ([]domain.Place, error) {
	payload := bytes.TrimSpace(raw)
	payload = bytes.TrimPrefix(payload, []byte(jsonGuardPrefix))

	var top []json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, errors.ErrFormatInvalid.WithDetails(map[string]interface{}{
			"reason": "payload is not a JSON array: " + err.Error(),
		})
	}
	if len(top) == 0 {
		return nil, errors.ErrFormatInvalid.WithDetails(map[string]interface{}{
			"reason": "empty list envelope",
		})
	}

	var layer []json.RawMessage
	if err := json.Unmarshal(top[0], &layer); err != nil || len(layer) < 2 {
		return nil, errors.ErrFormatInvalid.WithDetails(map[string]interface{}{
			"reason": "list envelope missing entry layer",
		})
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(layer[1], &entries); err != nil {
		return nil, errors.ErrFormatInvalid.WithDetails(map[string]interface{}{
			"reason": "entry layer is not an array",
		})
	}

	var places []domain.Place
	dropped := 0

	for _, rawEntry := range entries {
		var entry []json.RawMessage
		if err := json.Unmarshal(rawEntry, &entry); err != nil || len(entry) < entrySlots {
			dropped++
			continue
		}

		var name string
		if err := json.Unmarshal(entry[slotName], &name); err != nil || strings.TrimSpace(name) == "" {
			dropped++
			continue
		}

		var coords []float64
		if err := json.Unmarshal(entry[slotCoordinates], &coords); err != nil || len(coords) < 2 {
			// null or malformed coordinate slot
			dropped++
			continue
		}
		point := domain.Point{Lat: coords[1], Lon: coords[0]}

		var description string
		// description slot may be null
		_ = json.Unmarshal(entry[slotDescription], &description)

		places = append(places, buildPlace(strings.TrimSpace(name), strings.TrimSpace(description), point))
	}

	if dropped > 0 {
		logger.Debug("Dropped list entries without usable name or coordinates",
			zap.Int("dropped", dropped))
	}

	return places, nil
}
