package geometry

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownHandle = errors.New("unknown handle")

// Handle names the control that a drag started on.
type Handle string

const (
	Move Handle = "move"
	// Corner is the single bottom-right handle of the simple cropper. It
	// behaves like SE.
	Corner Handle = "resize"

	NW Handle = "nw"
	NE Handle = "ne"
	SW Handle = "sw"
	SE Handle = "se"
	N  Handle = "n"
	S  Handle = "s"
	E  Handle = "e"
	W  Handle = "w"
)

// Handles lists every handle accepted by ParseHandle.
var Handles = []Handle{Move, Corner, NW, NE, SW, SE, N, S, E, W}

// axis selects which dimension drives the other under an aspect lock.
type axis int

const (
	axisX axis = iota
	axisY
)

// descriptor is the data-driven form of a resize handle. dirX and dirY are
// the signs with which pointer motion grows the width and height: +1 moves
// the right/bottom edge, -1 moves the left/top edge and 0 leaves the axis to
// the aspect lock. The opposite edge is the anchor.
type descriptor struct {
	dirX, dirY int
	primary    axis
}

var descriptors = map[Handle]descriptor{
	Corner: {dirX: 1, dirY: 1, primary: axisX},
	SE:     {dirX: 1, dirY: 1, primary: axisX},
	NW:     {dirX: -1, dirY: -1, primary: axisX},
	NE:     {dirX: 1, dirY: -1, primary: axisX},
	SW:     {dirX: -1, dirY: 1, primary: axisX},
	N:      {dirX: 0, dirY: -1, primary: axisY},
	S:      {dirX: 0, dirY: 1, primary: axisY},
	E:      {dirX: 1, dirY: 0, primary: axisX},
	W:      {dirX: -1, dirY: 0, primary: axisX},
}

// ParseHandle resolves a handle name, case-insensitively.
func ParseHandle(s string) (Handle, error) {
	h := Handle(strings.ToLower(strings.TrimSpace(s)))
	if h == Move {
		return h, nil
	}
	if _, ok := descriptors[h]; ok {
		return h, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownHandle, s)
}

// Resizes reports whether h changes the rectangle size.
func (h Handle) Resizes() bool {
	_, ok := descriptors[h]
	return ok
}
