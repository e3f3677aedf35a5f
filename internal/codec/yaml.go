package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"dialoguetree/internal/domain"
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

// Parse imports a snapshot from YAML. The document is checked against the
// same schema as JSON input.
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Snapshot, error) {
	const op = "parse yaml"

	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.Errorf(domain.KindParse, op, "empty document")
		}
		return nil, domain.Wrap(domain.KindParse, op, err)
	}

	var raw any
	if err := root.Decode(&raw); err != nil {
		return nil, domain.Wrap(domain.KindParse, op, err)
	}
	if err := checkShape(op, gojsonschema.NewGoLoader(raw)); err != nil {
		return nil, err
	}

	var doc domain.Snapshot
	if err := root.Decode(&doc); err != nil {
		return nil, domain.Wrap(domain.KindParse, op, err)
	}
	doc.Normalize()

	return &doc, nil
}

// Export exports a snapshot to YAML
func (c *YAMLCodec) Export(doc *domain.Snapshot, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
