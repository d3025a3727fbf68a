package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the HTTP media type
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// Parse reads a run log from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*RunLog, error) {
	var log RunLog
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&log); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if log.Run == nil {
		return nil, fmt.Errorf("failed to parse YAML: missing run")
	}

	return &log, nil
}

// Export writes a run log as YAML
func (c *YAMLCodec) Export(log *RunLog, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(log); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
