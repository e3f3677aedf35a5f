package domain

import "strings"

// NodeKind represents the role a node plays in the conversation
type NodeKind string

const (
	NodeKindNPC     NodeKind = "npc"      // line spoken by an NPC
	NodeKindPlayer  NodeKind = "player"   // player choice point
	NodeKindGeneric NodeKind = "dialogue" // narration or anything else
)

// DefaultNodeText is the text given to freshly created nodes
const DefaultNodeText = "New Dialogue Node"

// DefaultNodePosition is where nodes land when the caller gives no position
var DefaultNodePosition = Position{X: 50, Y: 50}

// Valid reports whether k is a known kind
func (k NodeKind) Valid() bool {
	switch k {
	case NodeKindNPC, NodeKindPlayer, NodeKindGeneric:
		return true
	}
	return false
}

// ParseNodeKind accepts the wire value or a friendly alias
func ParseNodeKind(s string) (NodeKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "npc", "npc-dialogue":
		return NodeKindNPC, true
	case "player", "player-choice", "choice":
		return NodeKindPlayer, true
	case "dialogue", "generic", "":
		return NodeKindGeneric, true
	}
	return "", false
}

// Conditions gate whether a node is reachable at runtime
type Conditions struct {
	RequiredItems    []string `json:"requiredItems" yaml:"requiredItems"`
	RequiredLocation string   `json:"requiredLocation,omitempty" yaml:"requiredLocation,omitempty"`
	Custom           string   `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Consequences are applied to the world when a node is visited
type Consequences struct {
	GiveItems      []string `json:"giveItems" yaml:"giveItems"`
	RemoveItems    []string `json:"removeItems" yaml:"removeItems"`
	ChangeLocation string   `json:"changeLocation,omitempty" yaml:"changeLocation,omitempty"`
	Custom         string   `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Node is a single dialogue beat on the canvas
type Node struct {
	ID            int          `json:"id" yaml:"id" validate:"gt=0"`
	Kind          NodeKind     `json:"type" yaml:"type" validate:"omitempty,oneof=npc player dialogue"`
	Position      `yaml:",inline"`
	Text          string       `json:"text" yaml:"text" validate:"max=10000"`
	Choices       []string     `json:"choices" yaml:"choices" validate:"dive,max=2000"`
	AssociatedNPC string       `json:"associatedNpc,omitempty" yaml:"associatedNpc,omitempty"`
	Conditions    Conditions   `json:"conditions" yaml:"conditions"`
	Consequences  Consequences `json:"consequences" yaml:"consequences"`
}

// NewNode creates a node with kind-appropriate defaults
func NewNode(id int, kind NodeKind, pos Position) Node {
	n := Node{
		ID:       id,
		Kind:     kind,
		Position: pos,
		Text:     DefaultNodeText,
	}
	n.Normalize()
	return n
}

// Normalize replaces nil slices with empty ones and collapses duplicate
// names in the item sets, keeping first occurrence order.
func (n *Node) Normalize() {
	if n.Kind == "" {
		n.Kind = NodeKindGeneric
	}
	if n.Choices == nil {
		n.Choices = []string{}
	}
	n.Conditions.RequiredItems = uniqueNames(n.Conditions.RequiredItems)
	n.Consequences.GiveItems = uniqueNames(n.Consequences.GiveItems)
	n.Consequences.RemoveItems = uniqueNames(n.Consequences.RemoveItems)
}

// Clone returns a deep copy of n
func (n Node) Clone() Node {
	c := n
	c.Choices = cloneStrings(n.Choices)
	c.Conditions.RequiredItems = cloneStrings(n.Conditions.RequiredItems)
	c.Consequences.GiveItems = cloneStrings(n.Consequences.GiveItems)
	c.Consequences.RemoveItems = cloneStrings(n.Consequences.RemoveItems)
	return c
}

// NodePatch is a shallow partial update. Nil fields are left unchanged;
// nested structs are replaced whole.
type NodePatch struct {
	Kind          *NodeKind     `json:"type,omitempty"`
	X             *float64      `json:"x,omitempty"`
	Y             *float64      `json:"y,omitempty"`
	Text          *string       `json:"text,omitempty"`
	Choices       *[]string     `json:"choices,omitempty"`
	AssociatedNPC *string       `json:"associatedNpc,omitempty"`
	Conditions    *Conditions   `json:"conditions,omitempty"`
	Consequences  *Consequences `json:"consequences,omitempty"`
}

// MovePatch returns a patch that only sets the position
func MovePatch(p Position) NodePatch {
	x, y := p.X, p.Y
	return NodePatch{X: &x, Y: &y}
}

// IsPositionOnly reports whether the patch touches nothing but x and y
func (p NodePatch) IsPositionOnly() bool {
	return (p.X != nil || p.Y != nil) &&
		p.Kind == nil && p.Text == nil && p.Choices == nil &&
		p.AssociatedNPC == nil && p.Conditions == nil && p.Consequences == nil
}

// Apply merges the patch into n
func (p NodePatch) Apply(n *Node) {
	if p.Kind != nil {
		n.Kind = *p.Kind
	}
	if p.X != nil {
		n.X = *p.X
	}
	if p.Y != nil {
		n.Y = *p.Y
	}
	if p.Text != nil {
		n.Text = *p.Text
	}
	if p.Choices != nil {
		n.Choices = cloneStrings(*p.Choices)
	}
	if p.AssociatedNPC != nil {
		n.AssociatedNPC = *p.AssociatedNPC
	}
	if p.Conditions != nil {
		c := *p.Conditions
		c.RequiredItems = cloneStrings(c.RequiredItems)
		n.Conditions = c
	}
	if p.Consequences != nil {
		c := *p.Consequences
		c.GiveItems = cloneStrings(c.GiveItems)
		c.RemoveItems = cloneStrings(c.RemoveItems)
		n.Consequences = c
	}
	n.Normalize()
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func uniqueNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
