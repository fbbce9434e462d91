// Package geometry implements the crop-rectangle interaction model: a
// rectangle in source-image pixel space that is moved and resized by pointer
// drags, optionally locked to an aspect ratio, and always clamped to the
// image bounds.
//
// The package is pure: every operation takes a value and returns a new one.
// Editor wraps the pure functions for callers that need a single owner of
// the rectangle across pointer events.
package geometry

import (
	"fmt"
	"math"
)

const (
	// MinSize is the floor applied to crop width and height.
	MinSize = 50.0
	// DefaultCap bounds the side of the default square crop.
	DefaultCap = 300.0
)

// Point is a position in either display or source pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the natural size of a source image.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether s has no area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is the crop rectangle in source-image pixel coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) String() string {
	return fmt.Sprintf("rect(x=%.2f,y=%.2f,w=%.2f,h=%.2f)", r.X, r.Y, r.Width, r.Height)
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Within reports whether r satisfies the crop invariants for an image of
// size s, allowing eps of floating point slack.
func (r Rect) Within(s Size, eps float64) bool {
	minW, minH := floor(s.Width), floor(s.Height)
	return r.X >= -eps && r.Y >= -eps &&
		r.Right() <= s.Width+eps && r.Bottom() <= s.Height+eps &&
		r.Width >= minW-eps && r.Height >= minH-eps
}

// DefaultRect returns the crop shown right after an image is loaded: a
// centered square sized min(width, height, limit).
func DefaultRect(s Size, limit float64) Rect {
	if limit <= 0 {
		limit = DefaultCap
	}
	side := math.Min(math.Min(s.Width, s.Height), limit)
	return Rect{
		X:      (s.Width - side) / 2,
		Y:      (s.Height - side) / 2,
		Width:  side,
		Height: side,
	}
}

// ClampRect makes r legal for an image of size s. Size is clamped first,
// relative to the current position, then the position absorbs any excess.
func ClampRect(r Rect, s Size) Rect {
	x := clamp(r.X, 0, s.Width)
	y := clamp(r.Y, 0, s.Height)

	r.Width = clampSize(r.Width, floor(s.Width), s.Width-x, s.Width)
	r.Height = clampSize(r.Height, floor(s.Height), s.Height-y, s.Height)

	r.X = clamp(x, 0, s.Width-r.Width)
	r.Y = clamp(y, 0, s.Height-r.Height)
	return r
}

// clampSize caps v at room, floors it at lo and never lets it exceed the
// full image extent.
func clampSize(v, lo, room, extent float64) float64 {
	v = math.Min(v, room)
	v = math.Max(v, lo)
	return math.Min(v, extent)
}

// floor is the minimum crop extent along an axis of the given length.
// Images smaller than MinSize can only be cropped to their full extent.
func floor(extent float64) float64 {
	return math.Min(MinSize, extent)
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
