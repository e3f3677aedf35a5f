package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameElementsAddRemove(t *testing.T) {
	g := NewGameElements()

	added, err := g.Add(ElementItems, "Sword")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = g.Add(ElementItems, "Sword")
	require.NoError(t, err)
	assert.False(t, added, "duplicate names are rejected")

	_, err = g.Add(ElementItems, "Shield")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sword", "Shield"}, g.Names(ElementItems))

	removed, err := g.Remove(ElementItems, "Sword")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = g.Remove(ElementItems, "Sword")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, []string{"Shield"}, g.Names(ElementItems))
	assert.Empty(t, g.Names(ElementNPCs))
}

func TestGameElementsRejectsBadInput(t *testing.T) {
	g := NewGameElements()

	_, err := g.Add("weapons", "Axe")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = g.Add(ElementNPCs, "   ")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestGameElementsClone(t *testing.T) {
	g := NewGameElements()
	_, _ = g.Add(ElementLocations, "Tavern")

	c := g.Clone()
	_, _ = c.Add(ElementLocations, "Forest")

	assert.Equal(t, []string{"Tavern"}, g.Locations)
	assert.Equal(t, []string{"Tavern", "Forest"}, c.Locations)

	var nilElements *GameElements
	assert.NotNil(t, nilElements.Clone())
}

func TestParseElementKind(t *testing.T) {
	kind, ok := ParseElementKind("item")
	assert.True(t, ok)
	assert.Equal(t, ElementItems, kind)

	_, ok = ParseElementKind("spells")
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	err := NotFoundf("graph", "node %d not found", 4)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidEdge))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "graph: node 4 not found", err.Error())

	wrapped := Wrap(KindNetwork, "remote", errors.New("connection refused"))
	assert.True(t, errors.Is(wrapped, ErrNetwork))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Nil(t, Wrap(KindNetwork, "remote", nil))
}
