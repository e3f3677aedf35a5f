package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionArithmetic(t *testing.T) {
	p := Pt(10, 20)
	q := Pt(3, -4)

	assert.Equal(t, Pt(13, 16), p.Add(q))
	assert.Equal(t, Pt(7, 24), p.Sub(q))
	assert.Equal(t, Pt(5, 10), p.Scale(0.5))
	assert.Equal(t, Pt(-20, -40), p.Scale(-2))
}
