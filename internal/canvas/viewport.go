// Package canvas implements the spatial side of the editor: the pan/zoom
// transform between screen and world space, node geometry and hit
// testing, node dragging, and the two-click connection protocol.
//
// Nothing here renders. Callers feed pointer positions in screen space and
// read back world-space geometry.
package canvas

import "dialoguetree/internal/domain"

const (
	MinZoom  = 0.3
	MaxZoom  = 3.0
	ZoomStep = 1.2
)

// Viewport maps between screen and world coordinates.
// screen = world*zoom + pan
type Viewport struct {
	zoom float64
	pan  domain.Position

	panning bool
	anchor  domain.Position
}

// NewViewport returns an identity viewport
func NewViewport() *Viewport {
	return &Viewport{zoom: 1}
}

// Zoom returns the current scale factor
func (v *Viewport) Zoom() float64 {
	return v.zoom
}

// Pan returns the current screen-space translation
func (v *Viewport) Pan() domain.Position {
	return v.pan
}

// ZoomIn scales up by ZoomStep, clamped to MaxZoom
func (v *Viewport) ZoomIn() {
	v.zoom = min(v.zoom*ZoomStep, MaxZoom)
}

// ZoomOut scales down by ZoomStep, clamped to MinZoom
func (v *Viewport) ZoomOut() {
	v.zoom = max(v.zoom/ZoomStep, MinZoom)
}

// ResetView restores zoom 1 and no pan
func (v *Viewport) ResetView() {
	v.zoom = 1
	v.pan = domain.Position{}
	v.panning = false
}

// ScreenToWorld maps a screen point into world space
func (v *Viewport) ScreenToWorld(p domain.Position) domain.Position {
	return p.Sub(v.pan).Scale(1 / v.zoom)
}

// WorldToScreen maps a world point onto the screen
func (v *Viewport) WorldToScreen(p domain.Position) domain.Position {
	return p.Scale(v.zoom).Add(v.pan)
}

// BeginPan starts a pan gesture at the given screen pointer
func (v *Viewport) BeginPan(pointer domain.Position) {
	v.panning = true
	v.anchor = pointer.Sub(v.pan)
}

// MovePan follows the pointer. It reports false outside a pan gesture.
func (v *Viewport) MovePan(pointer domain.Position) bool {
	if !v.panning {
		return false
	}
	v.pan = pointer.Sub(v.anchor)
	return true
}

// EndPan finishes the pan gesture
func (v *Viewport) EndPan() {
	v.panning = false
}

// Panning reports whether a pan gesture is in progress
func (v *Viewport) Panning() bool {
	return v.panning
}
