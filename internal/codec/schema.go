package codec

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"dialoguetree/internal/domain"
)

// snapshotSchema describes the shape of an export document. Ids on
// connections are optional for documents from older exports.
const snapshotSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "nodes": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "integer"},
          "type": {"type": "string"},
          "x": {"type": "number"},
          "y": {"type": "number"},
          "text": {"type": "string"},
          "choices": {"type": ["array", "null"], "items": {"type": "string"}},
          "associatedNpc": {"type": ["string", "null"]},
          "conditions": {
            "type": ["object", "null"],
            "properties": {
              "requiredItems": {"type": ["array", "null"], "items": {"type": "string"}},
              "requiredLocation": {"type": ["string", "null"]},
              "custom": {"type": ["string", "null"]}
            }
          },
          "consequences": {
            "type": ["object", "null"],
            "properties": {
              "giveItems": {"type": ["array", "null"], "items": {"type": "string"}},
              "removeItems": {"type": ["array", "null"], "items": {"type": "string"}},
              "changeLocation": {"type": ["string", "null"]},
              "custom": {"type": ["string", "null"]}
            }
          }
        }
      }
    },
    "connections": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["from", "to"],
        "properties": {
          "id": {"type": "integer"},
          "from": {"type": "integer"},
          "to": {"type": "integer"}
        }
      }
    },
    "gameElements": {
      "type": ["object", "null"],
      "properties": {
        "npcs": {"type": ["array", "null"], "items": {"type": "string"}},
        "items": {"type": ["array", "null"], "items": {"type": "string"}},
        "locations": {"type": ["array", "null"], "items": {"type": "string"}}
      }
    },
    "timestamp": {"type": ["string", "null"]}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(snapshotSchema)

// checkShape validates a loaded document against the snapshot schema
func checkShape(op string, document gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, document)
	if err != nil {
		return domain.Wrap(domain.KindParse, op, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return domain.Errorf(domain.KindParse, op, "not a snapshot document: %s", strings.Join(problems, "; "))
}
