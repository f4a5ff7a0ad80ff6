package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"packetflow/internal/domain"
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

// Parse imports a topology from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.Topology, error) {
	var doc document
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return doc.topology()
}

// Export exports a topology to JSON
func (c *JSONCodec) Export(topo *domain.Topology, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(toDocument(topo)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
