package intake

import (
	"encoding/json"
	"fmt"
	"strings"

	"skitflow/internal/dialogue"
	"skitflow/internal/services"
)

// payloadPrefix marks a chat message that carries dialogue records. The
// match is case-insensitive; everything after the prefix must be a JSON
// array of record objects.
const payloadPrefix = "from:"

// Record is one dialogue entry from an operator payload.
type Record struct {
	Dialogue    string `json:"dialogue"`
	Character   string `json:"character"`
	Image       string `json:"image"`
	ImageSearch string `json:"image_search"`
}

// ExtractPayload parses an operator chat message into dialogue inputs.
// Messages without the payload prefix return (nil, nil) and are ignored.
// A prefixed message that fails to parse or contains any invalid record
// is rejected as a whole so no partial batch ever reaches the store.
func ExtractPayload(text string) ([]dialogue.LineInput, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < len(payloadPrefix) || !strings.EqualFold(trimmed[:len(payloadPrefix)], payloadPrefix) {
		return nil, nil
	}
	body := strings.TrimSpace(trimmed[len(payloadPrefix):])
	if body == "" {
		return nil, services.Wrap(services.ErrValidation, "intake", "extract", "payload has no body", nil)
	}

	var records []Record
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		return nil, services.Wrap(services.ErrValidation, "intake", "extract", "payload is not a JSON array of records", err)
	}
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrValidation, "intake", "extract", "payload array is empty", nil)
	}

	inputs := make([]dialogue.LineInput, 0, len(records))
	for i, record := range records {
		if strings.TrimSpace(record.Dialogue) == "" {
			return nil, services.Wrap(services.ErrValidation, "intake", "extract", fmt.Sprintf("record %d has empty dialogue", i), nil)
		}
		inputs = append(inputs, dialogue.LineInput{
			Sentence:    strings.TrimSpace(record.Dialogue),
			Character:   strings.TrimSpace(record.Character),
			Image:       strings.TrimSpace(record.Image),
			ImageSearch: strings.TrimSpace(record.ImageSearch),
		})
	}
	return inputs, nil
}
