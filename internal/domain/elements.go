package domain

import (
	"slices"
	"strings"
)

// ElementKind names one of the three game element registries
type ElementKind string

const (
	ElementNPCs      ElementKind = "npcs"
	ElementItems     ElementKind = "items"
	ElementLocations ElementKind = "locations"
)

// ElementKinds lists the registries in display order
var ElementKinds = []ElementKind{ElementNPCs, ElementItems, ElementLocations}

// ParseElementKind accepts the plural wire name or its singular form
func ParseElementKind(s string) (ElementKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "npcs", "npc":
		return ElementNPCs, true
	case "items", "item":
		return ElementItems, true
	case "locations", "location":
		return ElementLocations, true
	}
	return "", false
}

// GameElements holds the named sets nodes may refer to. Names are unique
// within a set and keep insertion order.
type GameElements struct {
	NPCs      []string `json:"npcs" yaml:"npcs" validate:"dive,required,max=200"`
	Items     []string `json:"items" yaml:"items" validate:"dive,required,max=200"`
	Locations []string `json:"locations" yaml:"locations" validate:"dive,required,max=200"`
}

// ElementsRecord is the registry as the remote store keeps it: a
// singleton row with its own id.
type ElementsRecord struct {
	ID int `json:"id" yaml:"id"`
	GameElements `yaml:",inline"`
}

// NewGameElements returns empty registries
func NewGameElements() *GameElements {
	return &GameElements{
		NPCs:      []string{},
		Items:     []string{},
		Locations: []string{},
	}
}

func (g *GameElements) set(kind ElementKind) (*[]string, error) {
	switch kind {
	case ElementNPCs:
		return &g.NPCs, nil
	case ElementItems:
		return &g.Items, nil
	case ElementLocations:
		return &g.Locations, nil
	}
	return nil, Errorf(KindValidation, "game elements", "unknown element kind %q", kind)
}

// Names returns a copy of the names registered under kind
func (g *GameElements) Names(kind ElementKind) []string {
	s, err := g.set(kind)
	if err != nil {
		return nil
	}
	return slices.Clone(*s)
}

// Contains reports whether name is registered under kind
func (g *GameElements) Contains(kind ElementKind, name string) bool {
	s, err := g.set(kind)
	if err != nil {
		return false
	}
	return slices.Contains(*s, name)
}

// Add registers name under kind. It reports false when the name was
// already present.
func (g *GameElements) Add(kind ElementKind, name string) (bool, error) {
	s, err := g.set(kind)
	if err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, Errorf(KindValidation, "game elements", "%s name must not be empty", kind)
	}
	if slices.Contains(*s, name) {
		return false, nil
	}
	*s = append(*s, name)
	return true, nil
}

// Remove drops name from kind. It reports false when the name was absent.
func (g *GameElements) Remove(kind ElementKind, name string) (bool, error) {
	s, err := g.set(kind)
	if err != nil {
		return false, err
	}
	i := slices.Index(*s, name)
	if i < 0 {
		return false, nil
	}
	*s = slices.Delete(*s, i, i+1)
	return true, nil
}

// Clone returns a deep copy of g
func (g *GameElements) Clone() *GameElements {
	if g == nil {
		return NewGameElements()
	}
	c := &GameElements{
		NPCs:      slices.Clone(g.NPCs),
		Items:     slices.Clone(g.Items),
		Locations: slices.Clone(g.Locations),
	}
	c.Normalize()
	return c
}

// Normalize replaces nil sets with empty ones and drops duplicate names
func (g *GameElements) Normalize() {
	g.NPCs = uniqueNames(g.NPCs)
	g.Items = uniqueNames(g.Items)
	g.Locations = uniqueNames(g.Locations)
}
