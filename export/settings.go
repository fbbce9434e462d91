// Package export runs a processing pass: extract the crop, encode it and
// every enabled extra size, and keep the resulting artifacts addressable
// until they are superseded.
package export

import (
	"fmt"

	"cropforge/encoder"
)

// Settings are the user's export choices. A TargetSizeKB of zero disables
// the size search and Quality is used directly.
type Settings struct {
	Format       encoder.Format `json:"format"`
	Quality      float64        `json:"quality"`
	TargetSizeKB int            `json:"target_size_kb"`
}

// DefaultSettings mirrors the widget's initial panel.
func DefaultSettings() Settings {
	return Settings{
		Format:       encoder.PNG,
		Quality:      encoder.StartQuality,
		TargetSizeKB: 500,
	}
}

// Normalize brings out-of-range values back into their domain: quality into
// (0, 1], negative targets to zero and an empty format to PNG.
func (s Settings) Normalize() Settings {
	if s.Format == "" {
		s.Format = encoder.PNG
	}
	switch {
	case s.Quality <= 0:
		s.Quality = encoder.MinQuality
	case s.Quality > 1:
		s.Quality = 1
	}
	if s.TargetSizeKB < 0 {
		s.TargetSizeKB = 0
	}
	return s
}

// Validate rejects formats the encoder does not know.
func (s Settings) Validate() error {
	if _, err := encoder.ParseFormat(string(s.Format)); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// OutputSpec is an additional export size.
type OutputSpec struct {
	Width   int  `json:"width"`
	Height  int  `json:"height"`
	Enabled bool `json:"enabled"`
}

func (o OutputSpec) String() string {
	return fmt.Sprintf("%dx%d", o.Width, o.Height)
}

// DefaultOutputs is the initial list of extra sizes, all disabled.
func DefaultOutputs() []OutputSpec {
	return []OutputSpec{
		{Width: 1920, Height: 1080},
		{Width: 1280, Height: 720},
		{Width: 640, Height: 480},
	}
}
