package geometry

import (
	"errors"
	"sync"
)

var (
	ErrDragActive = errors.New("a drag is already in progress")
	ErrDragEnded  = errors.New("drag has ended")
	ErrEmptyImage = errors.New("no image loaded")
)

// Editor is the single owner of the crop rectangle. Pointer gestures go
// through a Drag obtained from StartDrag; at most one is active at a time and
// it must be disposed when the gesture ends.
type Editor struct {
	mu    sync.Mutex
	state State
	limit float64
	drag  *Drag
}

// NewEditor returns an editor with no image. limit caps the default square
// crop; zero selects DefaultCap.
func NewEditor(limit float64) *Editor {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &Editor{limit: limit}
}

// Load resets the rectangle for a new image, ending any active drag. The
// aspect entry carries over and constrains the new default crop.
func (e *Editor) Load(image Size) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.releaseLocked()
	e.resetLocked(image)
	return e.state
}

// State returns a copy of the current editor state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Loaded reports whether an image has been loaded.
func (e *Editor) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.state.Image.Empty()
}

// SetAspect switches the aspect-ratio entry by key.
func (e *Editor) SetAspect(key string) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := ApplyAspectLock(e.state, key)
	if err != nil {
		return e.state, err
	}
	e.state = st
	return st, nil
}

// SetRect replaces the rectangle, clamped to the image. Under a locked
// aspect the height follows the width.
func (e *Editor) SetRect(r Rect) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Rect = ClampRect(r, e.state.Image)
	e.state = fitAspect(e.state)
	return e.state
}

// Reset restores the default crop for the loaded image and keeps the
// aspect entry, reapplying its lock.
func (e *Editor) Reset() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked(e.state.Image)
	return e.state
}

func (e *Editor) resetLocked(image Size) {
	aspect := e.state.Aspect
	e.state = NewState(image, e.limit)
	if aspect.Locked() {
		e.state.Aspect = aspect
		e.state = fitAspect(e.state)
	}
}

// StartDrag begins a gesture on handle h at the display position start.
// A zero viewport means display and source coordinates coincide.
func (e *Editor) StartDrag(h Handle, start Point, vp Viewport) (*Drag, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Image.Empty() {
		return nil, ErrEmptyImage
	}
	if e.drag != nil {
		return nil, ErrDragActive
	}
	if vp.Natural.Empty() {
		vp.Natural = e.state.Image
	}
	session, err := BeginDrag(h, start, e.state.Rect, vp)
	if err != nil {
		return nil, err
	}
	d := &Drag{editor: e, session: session}
	e.drag = d
	return d, nil
}

// WithDrag runs fn inside a drag session and disposes it on every exit path.
func (e *Editor) WithDrag(h Handle, start Point, vp Viewport, fn func(*Drag) error) error {
	d, err := e.StartDrag(h, start, vp)
	if err != nil {
		return err
	}
	defer d.Dispose()
	return fn(d)
}

// Dragging reports whether a gesture is in progress.
func (e *Editor) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag != nil
}

// Close ends any active drag.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked()
}

func (e *Editor) releaseLocked() {
	if e.drag != nil {
		e.drag.ended = true
		e.drag = nil
	}
}

// Drag is a live pointer gesture. It stops accepting updates once disposed,
// either directly or because the editor loaded a new image or closed.
type Drag struct {
	editor  *Editor
	session DragSession
	ended   bool
}

// Session returns the snapshot taken at drag start.
func (d *Drag) Session() DragSession {
	return d.session
}

// Move updates the rectangle for the pointer at display position p.
func (d *Drag) Move(p Point) (Rect, error) {
	e := d.editor
	e.mu.Lock()
	defer e.mu.Unlock()

	if d.ended {
		return e.state.Rect, ErrDragEnded
	}
	e.state = ApplyDrag(e.state, d.session, p)
	return e.state.Rect, nil
}

// Dispose ends the gesture. It is safe to call more than once.
func (d *Drag) Dispose() {
	e := d.editor
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.drag == d {
		e.drag = nil
	}
	d.ended = true
}
