package codec

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the HTTP media type
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Parse reads a run log from JSON
func (c *JSONCodec) Parse(r io.Reader) (*RunLog, error) {
	var log RunLog
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&log); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if log.Run == nil {
		return nil, fmt.Errorf("failed to parse JSON: missing run")
	}

	return &log, nil
}

// Export writes a run log as JSON
func (c *JSONCodec) Export(log *RunLog, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(log); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
