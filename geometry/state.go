package geometry

import (
	"math"
)

// State is the editor value: image size, crop rectangle and active aspect
// entry. Functions in this file take a State and return a new one.
type State struct {
	Image  Size        `json:"image"`
	Rect   Rect        `json:"rect"`
	Aspect AspectRatio `json:"aspect"`
}

// NewState returns the state for a freshly loaded image: default square
// crop, aspect lock off.
func NewState(image Size, limit float64) State {
	return State{
		Image:  image,
		Rect:   ClampRect(DefaultRect(image, limit), image),
		Aspect: Free,
	}
}

// DragSession is the snapshot taken when a pointer button goes down. All
// updates during the gesture are computed from the anchor rectangle, so
// returning the pointer to its start restores the anchor.
type DragSession struct {
	Handle   Handle   `json:"handle"`
	Anchor   Rect     `json:"anchor"`
	Start    Point    `json:"start"`
	Viewport Viewport `json:"viewport"`
}

// BeginDrag records a drag session for handle h starting at the display
// position start.
func BeginDrag(h Handle, start Point, current Rect, vp Viewport) (DragSession, error) {
	if _, err := ParseHandle(string(h)); err != nil {
		return DragSession{}, err
	}
	return DragSession{
		Handle:   h,
		Anchor:   current,
		Start:    start,
		Viewport: vp,
	}, nil
}

// Delta returns the pointer motion since the drag began, in source pixels.
func (d DragSession) Delta(p Point) Point {
	sx, sy := d.Viewport.Scale()
	return Point{
		X: (p.X - d.Start.X) * sx,
		Y: (p.Y - d.Start.Y) * sy,
	}
}

// ApplyDrag computes the rectangle for the pointer at display position p.
func ApplyDrag(st State, d DragSession, p Point) State {
	delta := d.Delta(p)
	if d.Handle == Move {
		st.Rect = moveRect(d.Anchor, delta, st.Image)
		return st
	}
	desc, ok := descriptors[d.Handle]
	if !ok {
		return st
	}
	st.Rect = resizeRect(d.Anchor, desc, delta, st.Aspect.Ratio, st.Image)
	return st
}

// ApplyAspectLock switches the aspect entry. A locked ratio immediately
// sets height = width / ratio and refits the rectangle; Free leaves the
// rectangle unchanged.
func ApplyAspectLock(st State, key string) (State, error) {
	a, err := LookupAspect(key)
	if err != nil {
		return st, err
	}
	st.Aspect = a
	return fitAspect(st), nil
}

// fitAspect sets height = width / ratio for a locked entry and refits the
// rectangle, keeping its top-left corner where the bounds allow.
func fitAspect(st State) State {
	if !st.Aspect.Locked() {
		return st
	}
	r := st.Rect
	r.Height = r.Width / st.Aspect.Ratio
	st.Rect = resizeRect(r, descriptors[SE], Point{}, st.Aspect.Ratio, st.Image)
	return st
}

func moveRect(a Rect, delta Point, s Size) Rect {
	a.X = clamp(a.X+delta.X, 0, s.Width-a.Width)
	a.Y = clamp(a.Y+delta.Y, 0, s.Height-a.Height)
	return a
}

// resizeRect is the single routine behind every resize handle. The size is
// derived and clamped against the room available from the anchored edges,
// then the position is derived from the anchors and clamped.
func resizeRect(a Rect, d descriptor, delta Point, ratio float64, s Size) Rect {
	locked := ratio > 0

	w, h := a.Width, a.Height
	if d.dirX != 0 {
		w += float64(d.dirX) * delta.X
	}
	if d.dirY != 0 {
		h += float64(d.dirY) * delta.Y
	}
	if locked {
		if d.primary == axisX {
			h = w / ratio
		} else {
			w = h * ratio
		}
	}

	maxW := room(a.X, a.Width, d.dirX, locked, s.Width)
	maxH := room(a.Y, a.Height, d.dirY, locked, s.Height)
	minW, minH := floor(s.Width), floor(s.Height)

	fitted := false
	if locked {
		// Width range in which both dimensions are legal with the ratio held.
		lo := math.Max(minW, minH*ratio)
		hi := math.Min(maxW, maxH*ratio)
		if lo <= hi {
			w = clamp(w, lo, hi)
			h = w / ratio
			fitted = true
		}
	}
	if !fitted {
		// Bounds and the minimum win over the ratio when the image leaves
		// no room for all three.
		w = clampSize(w, minW, maxW, s.Width)
		h = clampSize(h, minH, maxH, s.Height)
	}

	return Rect{
		X:      clamp(anchored(a.X, a.Width, w, d.dirX), 0, s.Width-w),
		Y:      clamp(anchored(a.Y, a.Height, h, d.dirY), 0, s.Height-h),
		Width:  w,
		Height: h,
	}
}

// room is the largest extent allowed along an axis given which edge is
// anchored. A locked axis without a moving edge grows around its midpoint.
func room(pos, ext float64, dir int, locked bool, extent float64) float64 {
	switch {
	case dir > 0:
		return extent - pos
	case dir < 0:
		return pos + ext
	case locked:
		mid := pos + ext/2
		return 2 * math.Min(mid, extent-mid)
	default:
		return extent - pos
	}
}

// anchored returns the new start coordinate that keeps the anchor fixed.
func anchored(pos, ext, newExt float64, dir int) float64 {
	switch {
	case dir > 0:
		return pos
	case dir < 0:
		return pos + ext - newExt
	default:
		return pos + (ext-newExt)/2
	}
}
