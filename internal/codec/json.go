package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xeipuuv/gojsonschema"

	"dialoguetree/internal/domain"
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

// Parse imports a snapshot from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.Snapshot, error) {
	const op = "parse json"

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.Wrap(domain.KindParse, op, err)
	}
	if err := checkShape(op, gojsonschema.NewBytesLoader(data)); err != nil {
		return nil, err
	}

	var doc domain.Snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.Wrap(domain.KindParse, op, err)
	}
	doc.Normalize()

	return &doc, nil
}

// Export exports a snapshot to JSON
func (c *JSONCodec) Export(doc *domain.Snapshot, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
