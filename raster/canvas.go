// Package raster is the drawing surface used to extract the crop and to
// rescale it for additional output sizes.
package raster

import (
	"fmt"
	"image"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Scaler names an interpolation used by DrawRegion.
type Scaler string

const (
	Nearest    Scaler = "nearest"
	BiLinear   Scaler = "bilinear"
	CatmullRom Scaler = "catmullrom"
)

// Interpolator returns the x/image/draw implementation for s. Unknown names
// fall back to BiLinear.
func (s Scaler) Interpolator() draw.Interpolator {
	switch Scaler(strings.ToLower(string(s))) {
	case Nearest:
		return draw.NearestNeighbor
	case CatmullRom:
		return draw.CatmullRom
	default:
		return draw.BiLinear
	}
}

// Canvas is an RGBA surface of a fixed size.
type Canvas struct {
	img    *image.NRGBA
	scaler draw.Interpolator
}

// NewCanvas allocates a transparent canvas of w x h pixels.
func NewCanvas(w, h int, s Scaler) (*Canvas, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", w, h)
	}
	return &Canvas{
		img:    image.NewNRGBA(image.Rect(0, 0, w, h)),
		scaler: s.Interpolator(),
	}, nil
}

// Bounds returns the canvas rectangle, anchored at the origin.
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Image exposes the canvas pixels.
func (c *Canvas) Image() image.Image {
	return c.img
}

// DrawRegion scales the srcRect part of src into destRect of the canvas.
// srcRect is relative to src's origin and is clipped to src's bounds.
func (c *Canvas) DrawRegion(src image.Image, srcRect, destRect image.Rectangle) error {
	sb := src.Bounds()
	sr := srcRect.Add(sb.Min).Intersect(sb)
	if sr.Empty() {
		return fmt.Errorf("source region %v outside image %v", srcRect, sb)
	}
	dr := destRect.Intersect(c.img.Bounds())
	if dr.Empty() {
		return fmt.Errorf("destination region %v outside canvas %v", destRect, c.img.Bounds())
	}
	if sr.Size() == dr.Size() {
		draw.Copy(c.img, dr.Min, src, sr, draw.Src, nil)
		return nil
	}
	c.scaler.Scale(c.img, dr, src, sr, draw.Src, nil)
	return nil
}

// PixelRect rounds a floating point crop to whole pixels, keeping at least
// one pixel in each direction.
func PixelRect(x, y, w, h float64) image.Rectangle {
	x0 := int(math.Round(x))
	y0 := int(math.Round(y))
	x1 := int(math.Round(x + w))
	y1 := int(math.Round(y + h))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return image.Rect(x0, y0, x1, y1)
}
