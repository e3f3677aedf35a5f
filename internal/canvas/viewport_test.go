package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dialoguetree/internal/domain"
)

func TestZoomClamp(t *testing.T) {
	t.Run("ten zoom-ins stop at max", func(t *testing.T) {
		v := NewViewport()
		for i := 0; i < 10; i++ {
			v.ZoomIn()
		}
		assert.Equal(t, MaxZoom, v.Zoom())
	})

	t.Run("ten zoom-outs stop at min", func(t *testing.T) {
		v := NewViewport()
		for i := 0; i < 10; i++ {
			v.ZoomOut()
		}
		assert.Equal(t, MinZoom, v.Zoom())
	})

	t.Run("any sequence stays in range", func(t *testing.T) {
		v := NewViewport()
		ops := []func(){v.ZoomIn, v.ZoomOut, v.ZoomIn, v.ZoomIn, v.ZoomOut}
		for i := 0; i < 40; i++ {
			ops[(i*7)%len(ops)]()
			assert.GreaterOrEqual(t, v.Zoom(), MinZoom)
			assert.LessOrEqual(t, v.Zoom(), MaxZoom)
		}
	})

	t.Run("single steps scale by the factor", func(t *testing.T) {
		v := NewViewport()
		v.ZoomIn()
		assert.InDelta(t, 1.2, v.Zoom(), 1e-9)
		v.ZoomOut()
		v.ZoomOut()
		assert.InDelta(t, 1/1.2, v.Zoom(), 1e-9)
	})
}

func TestTransformRoundTrip(t *testing.T) {
	v := NewViewport()
	v.ZoomIn()
	v.ZoomIn()
	v.BeginPan(domain.Pt(0, 0))
	v.MovePan(domain.Pt(120, -40))
	v.EndPan()

	p := domain.Pt(33.5, -12)
	screen := v.WorldToScreen(p)
	back := v.ScreenToWorld(screen)

	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)

	assert.InDelta(t, 33.5*1.44+120, screen.X, 1e-9)
	assert.InDelta(t, -12*1.44-40, screen.Y, 1e-9)
}

func TestPanGesture(t *testing.T) {
	v := NewViewport()

	assert.False(t, v.MovePan(domain.Pt(10, 10)), "move outside gesture is ignored")
	assert.Equal(t, domain.Position{}, v.Pan())

	v.BeginPan(domain.Pt(100, 100))
	assert.True(t, v.Panning())
	v.MovePan(domain.Pt(130, 90))
	assert.Equal(t, domain.Pt(30, -10), v.Pan())

	v.EndPan()
	assert.False(t, v.Panning())

	// a second gesture continues from the current pan
	v.BeginPan(domain.Pt(0, 0))
	v.MovePan(domain.Pt(5, 5))
	assert.Equal(t, domain.Pt(35, -5), v.Pan())

	v.ResetView()
	assert.Equal(t, 1.0, v.Zoom())
	assert.Equal(t, domain.Position{}, v.Pan())
	assert.False(t, v.Panning())
}
