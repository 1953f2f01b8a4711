// Package parser implements the JSONParser which encodes and decodes
// telemetry records in JSON format.
package parser

import (
	"encoding/json"

	"Roamer/internal/model"
)

// JSONParser implements Parser interface using JSON serialization.
type JSONParser struct{}

// NewJSONParser creates a new JSON parser.
func NewJSONParser() *JSONParser { return &JSONParser{} }

// EncodeTelemetry encodes Telemetry into JSON string.
func (p *JSONParser) EncodeTelemetry(t model.Telemetry) (string, error) {
	b, err := json.Marshal(t)
	return string(b), err
}

// DecodeTelemetry decodes JSON string into Telemetry.
func (p *JSONParser) DecodeTelemetry(s string) (model.Telemetry, error) {
	var t model.Telemetry
	err := json.Unmarshal([]byte(s), &t)
	return t, err
}
