package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"dialoguetree/internal/domain"
)

// ============================================================================
// Node Row Scanner
// ============================================================================
//
// Column order must match between nodeColumns, scanArgs() and
// nodeInsertArgs(). New columns are appended at the end of all three.

const nodeColumns = `id, type, x, y, text, data`

// nodeData is the part of a node stored as JSON
type nodeData struct {
	Choices       []string            `json:"choices"`
	AssociatedNPC string              `json:"associatedNpc,omitempty"`
	Conditions    domain.Conditions   `json:"conditions"`
	Consequences  domain.Consequences `json:"consequences"`
}

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID       int
	Type     string
	X        float64
	Y        float64
	Text     string
	DataJSON sql.NullString
}

func (r *nodeRow) scanArgs() []interface{} {
	return []interface{}{&r.ID, &r.Type, &r.X, &r.Y, &r.Text, &r.DataJSON}
}

func (r *nodeRow) toDomain() (domain.Node, error) {
	var data nodeData
	if err := unmarshalJSONField(r.DataJSON, &data); err != nil {
		return domain.Node{}, fmt.Errorf("failed to unmarshal data for node %d: %w", r.ID, err)
	}

	n := domain.Node{
		ID:            r.ID,
		Kind:          domain.NodeKind(r.Type),
		Position:      domain.Pt(r.X, r.Y),
		Text:          r.Text,
		Choices:       data.Choices,
		AssociatedNPC: data.AssociatedNPC,
		Conditions:    data.Conditions,
		Consequences:  data.Consequences,
	}
	n.Normalize()
	return n, nil
}

func nodeInsertArgs(n *domain.Node) ([]interface{}, error) {
	data, err := json.Marshal(nodeData{
		Choices:       n.Choices,
		AssociatedNPC: n.AssociatedNPC,
		Conditions:    n.Conditions,
		Consequences:  n.Consequences,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal node %d: %w", n.ID, err)
	}
	return []interface{}{n.ID, string(n.Kind), n.X, n.Y, n.Text, string(data)}, nil
}

// ============================================================================
// Connection and Elements Rows
// ============================================================================

const connectionColumns = `id, from_id, to_id`

type connectionRow struct {
	ID   int
	From int
	To   int
}

func (r *connectionRow) scanArgs() []interface{} {
	return []interface{}{&r.ID, &r.From, &r.To}
}

func (r *connectionRow) toDomain() domain.Connection {
	return domain.Connection{ID: r.ID, From: r.From, To: r.To}
}

type elementsRow struct {
	ID       int
	DataJSON sql.NullString
}

func (r *elementsRow) toDomain() (domain.ElementsRecord, error) {
	rec := domain.ElementsRecord{ID: r.ID}
	if err := unmarshalJSONField(r.DataJSON, &rec.GameElements); err != nil {
		return rec, fmt.Errorf("failed to unmarshal game elements %d: %w", r.ID, err)
	}
	rec.GameElements.Normalize()
	return rec, nil
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField unmarshals JSON from a nullable column into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

func marshalElements(g domain.GameElements) (string, error) {
	g.Normalize()
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to marshal game elements: %w", err)
	}
	return string(data), nil
}
