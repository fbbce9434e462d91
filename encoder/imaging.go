package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// ImagingEncoder encodes JPEG and PNG with disintegration/imaging and WebP
// with libwebp. PNG ignores the quality parameter.
type ImagingEncoder struct {
	// PNGCompression is passed to the PNG encoder.
	PNGCompression png.CompressionLevel
}

// NewImagingEncoder returns an encoder with default PNG compression.
func NewImagingEncoder() *ImagingEncoder {
	return &ImagingEncoder{PNGCompression: png.DefaultCompression}
}

func (e *ImagingEncoder) Encode(ctx context.Context, img image.Image, f Format, q float64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: no image", ErrEncodeFailed)
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(percent(q)))
	case PNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(e.PNGCompression))
	case WebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(percent(q))})
	default:
		return nil, fmt.Errorf("%w: %w %q", ErrEncodeFailed, ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncodeFailed, f, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: %s produced no output", ErrEncodeFailed, f)
	}
	return buf.Bytes(), nil
}

// percent maps a (0, 1] quality to the 1..100 scale used by the codecs.
func percent(q float64) int {
	p := int(math.Round(q * 100))
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}
