package geometry

import (
	"errors"
	"fmt"
)

var ErrUnknownAspect = errors.New("unknown aspect ratio")

// AspectRatio is one entry of the aspect-ratio table. A zero Ratio means the
// crop is unconstrained.
type AspectRatio struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Ratio float64 `json:"ratio,omitempty"`
}

// Locked reports whether the entry constrains width/height.
func (a AspectRatio) Locked() bool {
	return a.Ratio > 0
}

// Free is the unconstrained entry.
var Free = AspectRatio{Key: "free", Label: "Free"}

var aspectRatios = []AspectRatio{
	Free,
	{Key: "1:1", Label: "1:1 Square", Ratio: 1},
	{Key: "4:3", Label: "4:3 Standard", Ratio: 4.0 / 3.0},
	{Key: "16:9", Label: "16:9 Widescreen", Ratio: 16.0 / 9.0},
	{Key: "21:9", Label: "21:9 Ultrawide", Ratio: 21.0 / 9.0},
	{Key: "9:16", Label: "9:16 Portrait", Ratio: 9.0 / 16.0},
	{Key: "3:4", Label: "3:4 Portrait", Ratio: 3.0 / 4.0},
}

// AspectRatios returns the table in display order.
func AspectRatios() []AspectRatio {
	out := make([]AspectRatio, len(aspectRatios))
	copy(out, aspectRatios)
	return out
}

// LookupAspect finds a table entry by key. The empty key maps to Free.
func LookupAspect(key string) (AspectRatio, error) {
	if key == "" {
		return Free, nil
	}
	for _, a := range aspectRatios {
		if a.Key == key {
			return a, nil
		}
	}
	return AspectRatio{}, fmt.Errorf("%w %q", ErrUnknownAspect, key)
}
