package geometry

// Viewport relates the rendered preview box to the natural image size.
// Pointer positions arrive in display space and are scaled per axis.
type Viewport struct {
	Natural Size `json:"natural"`
	Display Size `json:"display"`
}

// NewViewport returns a viewport where display and natural space coincide.
func NewViewport(natural Size) Viewport {
	return Viewport{Natural: natural, Display: natural}
}

// Scale returns the natural/display ratio for each axis. An axis unset on
// either side is treated as unscaled.
func (v Viewport) Scale() (sx, sy float64) {
	sx, sy = 1, 1
	if v.Natural.Width > 0 && v.Display.Width > 0 {
		sx = v.Natural.Width / v.Display.Width
	}
	if v.Natural.Height > 0 && v.Display.Height > 0 {
		sy = v.Natural.Height / v.Display.Height
	}
	return sx, sy
}

// ToSource maps a display-space point into source pixels.
func (v Viewport) ToSource(p Point) Point {
	sx, sy := v.Scale()
	return Point{X: p.X * sx, Y: p.Y * sy}
}

// ToDisplay maps a source-space rectangle onto the preview, for drawing the
// crop overlay.
func (v Viewport) ToDisplay(r Rect) Rect {
	sx, sy := v.Scale()
	return Rect{
		X:      r.X / sx,
		Y:      r.Y / sy,
		Width:  r.Width / sx,
		Height: r.Height / sy,
	}
}
