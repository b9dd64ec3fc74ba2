package localization

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AliTahir-101/weather-api/internal/models"
)

// ErrUnsupportedLanguage is returned when the requested language has no
// localization table. There is deliberately no silent fallback to English.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Pair is one (label, value) entry of a localized payload.
type Pair struct {
	Label string
	Value interface{}
}

// Payload is the externally visible, language-specific rendering of a weather
// record: an ordered list of label/value pairs. It is derived at render time
// and never persisted.
type Payload []Pair

// MarshalJSON encodes the payload as a JSON object preserving pair order.
// Label order per language is part of the API contract, so the default
// map-based encoding cannot be used.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pair := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		label, err := json.Marshal(pair.Label)
		if err != nil {
			return nil, fmt.Errorf("marshal label %q: %w", pair.Label, err)
		}
		value, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value for %q: %w", pair.Label, err)
		}
		buf.Write(label)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Render produces the localized payload for a record. Numeric values pass
// through unchanged; the wind direction and description are translated via
// the table. A description code without a translation falls back to the code
// itself rather than failing the whole render.
func Render(rec models.WeatherRecord, lang Language) (Payload, error) {
	if !Supported(lang) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	direction, ok := DirectionName(lang, rec.WindDirection)
	if !ok {
		direction = string(rec.WindDirection)
	}
	description, ok := DescriptionText(lang, rec.DescriptionCode)
	if !ok {
		description = rec.DescriptionCode
	}

	values := map[Field]interface{}{
		FieldCityName:       rec.CityName,
		FieldTemperature:    rec.Temperature,
		FieldMinTemperature: rec.MinTemperature,
		FieldMaxTemperature: rec.MaxTemperature,
		FieldHumidity:       rec.Humidity,
		FieldPressure:       rec.Pressure,
		FieldWindSpeed:      rec.WindSpeed,
		FieldWindDirection:  direction,
		FieldDescription:    description,
	}

	payload := make(Payload, 0, len(fieldOrder))
	for _, field := range fieldOrder {
		label, ok := Label(lang, field)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
		}
		payload = append(payload, Pair{Label: label, Value: values[field]})
	}
	return payload, nil
}
