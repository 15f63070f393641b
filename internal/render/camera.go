// Package render draws the instance buffer. Game is the ebiten surface;
// RunHeadless drives the same frame pipeline without a display.
package render

import (
	"math"

	"github.com/star/satview/internal/transform"
)

// Camera is a fixed orthographic view looking at the origin from the +X
// axis with +Z up. World units are body radii.
type Camera struct {
	Width      int
	Height     int
	ViewRadius float64 // world units visible from the center to the nearest edge
}

// DefaultViewRadius keeps geostationary orbits (about 6.6 radii) on screen.
const DefaultViewRadius = 7.5

// Scale returns screen pixels per world unit.
func (c Camera) Scale() float64 {
	r := c.ViewRadius
	if r <= 0 {
		r = DefaultViewRadius
	}
	return float64(min(c.Width, c.Height)) / (2 * r)
}

// Center returns the screen position of the world origin.
func (c Camera) Center() (float32, float32) {
	return float32(c.Width) / 2, float32(c.Height) / 2
}

// Project maps a world transform to screen coordinates. visible is false for
// points inside the body (including slots never written, which sit at the
// origin), hidden behind the body disc, or outside the viewport.
func (c Camera) Project(t *transform.WorldTransform) (sx, sy float32, visible bool) {
	x, y, z := t.Translation()
	disc := float64(y)*float64(y) + float64(z)*float64(z)
	if disc+float64(x)*float64(x) < 1 {
		return 0, 0, false
	}
	if x < 0 && disc < 1 {
		return 0, 0, false
	}
	s := c.Scale()
	cx, cy := c.Center()
	sx = cx + float32(float64(y)*s)
	sy = cy - float32(float64(z)*s)
	if math.IsNaN(float64(sx)) || math.IsNaN(float64(sy)) ||
		sx < 0 || sy < 0 || sx >= float32(c.Width) || sy >= float32(c.Height) {
		return sx, sy, false
	}
	return sx, sy, true
}
