// Package codec reads and writes snapshot documents.
//
// Every Parse failure is a domain ParseFailure; callers can hand the error
// straight to the user. Parsed documents are normalized (absent collections
// become empty) but not checked for referential integrity, which is the
// graph store's job on import.
package codec

import (
	"io"
	"path/filepath"
	"strings"

	"dialoguetree/internal/domain"
)

// Importer parses a snapshot document from a reader
type Importer interface {
	Parse(r io.Reader) (*domain.Snapshot, error)
	Format() string
}

// Exporter writes a snapshot document to a writer
type Exporter interface {
	Export(doc *domain.Snapshot, w io.Writer) error
	Format() string
}

// Codec reads and writes one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for "json" or "yaml" ("yml" accepted)
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, domain.Errorf(domain.KindValidation, "codec", "unsupported format %q", format)
}

// FormatFromPath guesses the format from a file extension, defaulting to json
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

// ContentType returns the MIME type for a format
func ContentType(format string) string {
	if format == "yaml" {
		return "application/yaml"
	}
	return "application/json"
}
