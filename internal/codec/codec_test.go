package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialoguetree/internal/domain"
)

func sampleSnapshot() *domain.Snapshot {
	doc := domain.NewSnapshot()

	npc := domain.NewNode(1, domain.NodeKindNPC, domain.Pt(50, 50))
	npc.Text = "Halt! Who goes there?"
	npc.AssociatedNPC = "Guard"
	npc.Conditions = domain.Conditions{RequiredItems: []string{"Pass"}, RequiredLocation: "Gate", Custom: "night"}
	doc.AddNode(npc)

	choice := domain.NewNode(2, domain.NodeKindPlayer, domain.Pt(400, 80.5))
	choice.Choices = []string{"A friend", "Nobody"}
	choice.Consequences = domain.Consequences{GiveItems: []string{"Gold"}, RemoveItems: []string{"Pass"}, ChangeLocation: "Town"}
	choice.Normalize()
	doc.AddNode(choice)

	doc.AddConnection(domain.Connection{ID: 1, From: 1, To: 2})
	doc.AddConnection(domain.Connection{ID: 2, From: 1, To: 2})

	doc.GameElements = &domain.GameElements{
		NPCs:      []string{"Guard"},
		Items:     []string{"Pass", "Gold"},
		Locations: []string{"Gate", "Town"},
	}
	doc.Normalize()
	return doc
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			c, err := ForFormat(format)
			require.NoError(t, err)
			assert.Equal(t, format, c.Format())

			doc := sampleSnapshot()
			var buf bytes.Buffer
			require.NoError(t, c.Export(doc, &buf))

			parsed, err := c.Parse(&buf)
			require.NoError(t, err)

			if diff := cmp.Diff(doc, parsed); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTripKeepsTimestamp(t *testing.T) {
	doc := sampleSnapshot()
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	doc.Timestamp = &ts

	for _, format := range []string{"json", "yaml"} {
		c, _ := ForFormat(format)
		var buf bytes.Buffer
		require.NoError(t, c.Export(doc, &buf))

		parsed, err := c.Parse(&buf)
		require.NoError(t, err, format)
		require.NotNil(t, parsed.Timestamp, format)
		assert.True(t, ts.Equal(*parsed.Timestamp), format)
	}
}

func TestParseDefaultsAbsentCollections(t *testing.T) {
	parsed, err := NewJSONCodec().Parse(strings.NewReader(`{}`))
	require.NoError(t, err)

	assert.Empty(t, parsed.Nodes)
	assert.NotNil(t, parsed.Nodes)
	assert.NotNil(t, parsed.Connections)
	assert.Equal(t, domain.NewGameElements(), parsed.GameElements)

	parsed, err = NewJSONCodec().Parse(strings.NewReader(`{"nodes": null, "gameElements": {"npcs": ["Bob"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, parsed.GameElements.NPCs)
	assert.Equal(t, []string{}, parsed.GameElements.Items)
}

func TestParseLegacyConnections(t *testing.T) {
	input := `{
	  "nodes": [{"id": 1, "type": "npc", "x": 0, "y": 0, "text": "hi"},
	            {"id": 2, "type": "player", "x": 10, "y": 0, "text": "yo", "choices": ["ok"]}],
	  "connections": [{"_id": "65ab", "from": 1, "to": 2}]
	}`

	parsed, err := NewJSONCodec().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []domain.Connection{{ID: 1, From: 1, To: 2}}, parsed.Connections)
	assert.Equal(t, []string{"ok"}, parsed.Nodes[1].Choices)
	assert.Empty(t, parsed.Nodes[0].Choices)
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name   string
		format string
		input  string
	}{
		{"malformed json", "json", `{"nodes": [`},
		{"empty json", "json", ``},
		{"array document", "json", `[1, 2]`},
		{"string node id", "json", `{"nodes": [{"id": "one"}]}`},
		{"missing node id", "json", `{"nodes": [{"text": "x"}]}`},
		{"connection without endpoints", "json", `{"connections": [{"id": 1}]}`},
		{"elements not a list", "json", `{"gameElements": {"npcs": "Bob"}}`},
		{"empty yaml", "yaml", ``},
		{"malformed yaml", "yaml", "nodes: [\n  - id: 1\n  bad"},
		{"yaml scalar", "yaml", `just text`},
		{"yaml bad choices", "yaml", "nodes:\n  - id: 1\n    choices: nope\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ForFormat(tt.format)
			require.NoError(t, err)

			_, err = c.Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrParse), "got %v", err)
		})
	}
}

func TestForFormat(t *testing.T) {
	c, err := ForFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, "yaml", c.Format())

	c, err = ForFormat("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Format())

	_, err = ForFormat("xml")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	assert.Equal(t, "yaml", FormatFromPath("story.YAML"))
	assert.Equal(t, "json", FormatFromPath("story.json"))
	assert.Equal(t, "json", FormatFromPath("story"))
	assert.Equal(t, "application/yaml", ContentType("yaml"))
}
