package geometry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-6

var landscape = Size{Width: 1000, Height: 800}

func dragBy(t *testing.T, st State, h Handle, dx, dy float64) State {
	t.Helper()
	d, err := BeginDrag(h, Point{}, st.Rect, NewViewport(st.Image))
	require.NoError(t, err)
	return ApplyDrag(st, d, Point{X: dx, Y: dy})
}

func requireRect(t *testing.T, want, got Rect) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, eps, "x")
	assert.InDelta(t, want.Y, got.Y, eps, "y")
	assert.InDelta(t, want.Width, got.Width, eps, "width")
	assert.InDelta(t, want.Height, got.Height, eps, "height")
}

func TestDefaultRect(t *testing.T) {
	st := NewState(landscape, DefaultCap)
	requireRect(t, Rect{X: 350, Y: 250, Width: 300, Height: 300}, st.Rect)
	assert.Equal(t, Free, st.Aspect)

	small := NewState(Size{Width: 120, Height: 80}, DefaultCap)
	requireRect(t, Rect{X: 20, Y: 0, Width: 80, Height: 80}, small.Rect)
}

func TestScenarioResize(t *testing.T) {
	st := NewState(landscape, DefaultCap)

	st = dragBy(t, st, SE, 100, 50)
	requireRect(t, Rect{X: 350, Y: 250, Width: 400, Height: 350}, st.Rect)

	st = dragBy(t, st, NW, -9999, -9999)
	requireRect(t, Rect{X: 0, Y: 0, Width: 750, Height: 600}, st.Rect)
}

func TestResizeFloorsAtMinimum(t *testing.T) {
	st := NewState(landscape, DefaultCap)

	st = dragBy(t, st, SE, -9999, -9999)
	requireRect(t, Rect{X: 350, Y: 250, Width: MinSize, Height: MinSize}, st.Rect)

	st = NewState(landscape, DefaultCap)
	st = dragBy(t, st, NW, 9999, 9999)
	// Bottom-right edge stays at (650, 550).
	requireRect(t, Rect{X: 600, Y: 500, Width: MinSize, Height: MinSize}, st.Rect)
}

func TestMoveClampsPosition(t *testing.T) {
	st := NewState(landscape, DefaultCap)

	st = dragBy(t, st, Move, 5000, -5000)
	requireRect(t, Rect{X: 700, Y: 0, Width: 300, Height: 300}, st.Rect)
}

func TestEdgeHandles(t *testing.T) {
	tests := []struct {
		handle Handle
		dx, dy float64
		want   Rect
	}{
		{N, 0, -100, Rect{X: 350, Y: 150, Width: 300, Height: 400}},
		{S, 0, 100, Rect{X: 350, Y: 250, Width: 300, Height: 400}},
		{E, 100, 0, Rect{X: 350, Y: 250, Width: 400, Height: 300}},
		{W, -100, 0, Rect{X: 250, Y: 250, Width: 400, Height: 300}},
		{NE, 100, -100, Rect{X: 350, Y: 150, Width: 400, Height: 400}},
		{SW, -100, 100, Rect{X: 250, Y: 250, Width: 400, Height: 400}},
		{Corner, 100, 50, Rect{X: 350, Y: 250, Width: 400, Height: 350}},
	}
	for _, tt := range tests {
		t.Run(string(tt.handle), func(t *testing.T) {
			st := dragBy(t, NewState(landscape, DefaultCap), tt.handle, tt.dx, tt.dy)
			requireRect(t, tt.want, st.Rect)
		})
	}
}

func TestLockedEdgeHandleRecenters(t *testing.T) {
	st, err := ApplyAspectLock(NewState(landscape, DefaultCap), "1:1")
	require.NoError(t, err)

	st = dragBy(t, st, N, 0, -100)
	requireRect(t, Rect{X: 300, Y: 150, Width: 400, Height: 400}, st.Rect)
	assert.InDelta(t, 500, st.Rect.X+st.Rect.Width/2, eps, "horizontal midpoint")

	st, err = ApplyAspectLock(NewState(landscape, DefaultCap), "1:1")
	require.NoError(t, err)
	st = dragBy(t, st, E, 100, 0)
	requireRect(t, Rect{X: 350, Y: 200, Width: 400, Height: 400}, st.Rect)
}

func TestLockedCornerUsesWidth(t *testing.T) {
	st, err := ApplyAspectLock(NewState(landscape, DefaultCap), "16:9")
	require.NoError(t, err)

	st = dragBy(t, st, SE, 160, 0)
	assert.InDelta(t, 460, st.Rect.Width, eps)
	assert.InDelta(t, 460*9.0/16.0, st.Rect.Height, eps)
}

func TestLockedResizeStopsAtBounds(t *testing.T) {
	st, err := ApplyAspectLock(NewState(landscape, DefaultCap), "1:1")
	require.NoError(t, err)

	// Height room below y=250 is 550, so the square cannot exceed 550.
	st = dragBy(t, st, SE, 9999, 0)
	requireRect(t, Rect{X: 350, Y: 250, Width: 550, Height: 550}, st.Rect)
}

func TestAspectLockToggle(t *testing.T) {
	for _, a := range AspectRatios() {
		t.Run(a.Key, func(t *testing.T) {
			st := NewState(landscape, DefaultCap)
			st, err := ApplyAspectLock(st, a.Key)
			require.NoError(t, err)
			assert.Equal(t, a, st.Aspect)
			if !a.Locked() {
				requireRect(t, Rect{X: 350, Y: 250, Width: 300, Height: 300}, st.Rect)
				return
			}
			assert.InDelta(t, st.Rect.Width/a.Ratio, st.Rect.Height, eps)
			assert.True(t, st.Rect.Within(landscape, eps))
		})
	}
}

func TestAspectLockRefitsAtBottomEdge(t *testing.T) {
	st := NewState(landscape, DefaultCap)
	st.Rect = Rect{X: 100, Y: 600, Width: 300, Height: 200}

	st, err := ApplyAspectLock(st, "1:1")
	require.NoError(t, err)
	requireRect(t, Rect{X: 100, Y: 600, Width: 200, Height: 200}, st.Rect)
}

func TestAspectLockUnknownKey(t *testing.T) {
	st := NewState(landscape, DefaultCap)
	got, err := ApplyAspectLock(st, "5:4")
	require.ErrorIs(t, err, ErrUnknownAspect)
	assert.Equal(t, st, got)
}

func TestResizeRoundTrip(t *testing.T) {
	for _, h := range Handles {
		t.Run(string(h), func(t *testing.T) {
			start := NewState(landscape, DefaultCap)
			st := dragBy(t, start, h, 40, -30)
			st = dragBy(t, st, h, -40, 30)
			requireRect(t, start.Rect, st.Rect)
		})
	}
}

func TestDragIsRelativeToAnchor(t *testing.T) {
	st := NewState(landscape, DefaultCap)
	d, err := BeginDrag(SE, Point{X: 10, Y: 10}, st.Rect, NewViewport(landscape))
	require.NoError(t, err)

	moved := ApplyDrag(st, d, Point{X: 90, Y: 70})
	assert.NotEqual(t, st.Rect, moved.Rect)

	back := ApplyDrag(moved, d, Point{X: 10, Y: 10})
	requireRect(t, st.Rect, back.Rect)
}

func TestDragScalesDisplayDeltas(t *testing.T) {
	st := NewState(landscape, DefaultCap)
	vp := Viewport{Natural: landscape, Display: Size{Width: 500, Height: 400}}
	d, err := BeginDrag(SE, Point{X: 100, Y: 100}, st.Rect, vp)
	require.NoError(t, err)

	st = ApplyDrag(st, d, Point{X: 150, Y: 125})
	requireRect(t, Rect{X: 350, Y: 250, Width: 400, Height: 350}, st.Rect)
}

func TestBeginDragUnknownHandle(t *testing.T) {
	_, err := BeginDrag(Handle("x"), Point{}, Rect{}, Viewport{})
	require.ErrorIs(t, err, ErrUnknownHandle)
}

func TestRandomDragsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sizes := []Size{landscape, {Width: 640, Height: 1280}, {Width: 120, Height: 60}}
	ratios := AspectRatios()

	for _, size := range sizes {
		st := NewState(size, DefaultCap)
		vp := Viewport{Natural: size, Display: Size{Width: size.Width / 2, Height: size.Height / 3}}
		for i := 0; i < 2000; i++ {
			if rng.Intn(10) == 0 {
				var err error
				st, err = ApplyAspectLock(st, ratios[rng.Intn(len(ratios))].Key)
				require.NoError(t, err)
				require.Truef(t, st.Rect.Within(size, eps), "after aspect %s: %s", st.Aspect.Key, st.Rect)
			}
			h := Handles[rng.Intn(len(Handles))]
			start := Point{X: rng.Float64() * vp.Display.Width, Y: rng.Float64() * vp.Display.Height}
			d, err := BeginDrag(h, start, st.Rect, vp)
			require.NoError(t, err)
			for j := 0; j < 3; j++ {
				p := Point{
					X: start.X + (rng.Float64()-0.5)*vp.Display.Width*3,
					Y: start.Y + (rng.Float64()-0.5)*vp.Display.Height*3,
				}
				st = ApplyDrag(st, d, p)
				require.Truef(t, st.Rect.Within(size, eps), "%s drag (%s): %s", h, st.Aspect.Key, st.Rect)
			}
		}
	}
}

func TestClampRect(t *testing.T) {
	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"inside", Rect{X: 10, Y: 10, Width: 100, Height: 100}, Rect{X: 10, Y: 10, Width: 100, Height: 100}},
		{"negative origin", Rect{X: -20, Y: -5, Width: 100, Height: 100}, Rect{X: 0, Y: 0, Width: 100, Height: 100}},
		{"too small", Rect{X: 10, Y: 10, Width: 5, Height: 0}, Rect{X: 10, Y: 10, Width: MinSize, Height: MinSize}},
		{"overflow shrinks", Rect{X: 900, Y: 700, Width: 300, Height: 300}, Rect{X: 900, Y: 700, Width: 100, Height: 100}},
		{"floor pushes back", Rect{X: 990, Y: 790, Width: 300, Height: 300}, Rect{X: 950, Y: 750, Width: MinSize, Height: MinSize}},
		{"oversized", Rect{X: 0, Y: 0, Width: 5000, Height: 5000}, Rect{X: 0, Y: 0, Width: 1000, Height: 800}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampRect(tt.in, landscape)
			requireRect(t, tt.want, got)
			assert.True(t, got.Within(landscape, eps))
		})
	}
}

func TestViewportToDisplay(t *testing.T) {
	vp := Viewport{Natural: landscape, Display: Size{Width: 500, Height: 400}}
	requireRect(t, Rect{X: 175, Y: 125, Width: 150, Height: 150}, vp.ToDisplay(Rect{X: 350, Y: 250, Width: 300, Height: 300}))
	assert.Equal(t, Point{X: 200, Y: 100}, vp.ToSource(Point{X: 100, Y: 50}))
}

func TestViewportWithoutNaturalSize(t *testing.T) {
	vp := Viewport{Display: Size{Width: 500, Height: 400}}
	r := Rect{X: 350, Y: 250, Width: 300, Height: 300}
	requireRect(t, r, vp.ToDisplay(r))
	assert.Equal(t, Point{X: 100, Y: 50}, vp.ToSource(Point{X: 100, Y: 50}))
}
