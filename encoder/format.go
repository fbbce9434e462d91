// Package encoder turns a raster into bytes and searches the encoder
// quality for an output that fits a file-size budget.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	// ErrEncodeFailed is returned when an encoder produces no output.
	ErrEncodeFailed = errors.New("encode failed")
	// ErrUnknownFormat is returned by ParseFormat.
	ErrUnknownFormat = errors.New("unknown format")
)

// Format is an output image format. Its string value is also the filename
// extension.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
)

// Formats lists the supported output formats.
var Formats = []Format{PNG, JPEG, WebP}

// ParseFormat accepts a format name or MIME type.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "image/")
	switch s {
	case "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "webp":
		return WebP, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
}

// Ext returns the filename extension without a dot.
func (f Format) Ext() string {
	return string(f)
}

// MIME returns the content type.
func (f Format) MIME() string {
	return "image/" + string(f)
}

// Lossy reports whether the quality parameter affects the output.
func (f Format) Lossy() bool {
	return f == JPEG || f == WebP
}

// Encoder encodes a raster at quality q in (0, 1].
type Encoder interface {
	Encode(ctx context.Context, img image.Image, f Format, q float64) ([]byte, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(ctx context.Context, img image.Image, f Format, q float64) ([]byte, error)

func (fn EncoderFunc) Encode(ctx context.Context, img image.Image, f Format, q float64) ([]byte, error) {
	return fn(ctx, img, f, q)
}
