package main

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"cropforge/geometry"
	"cropforge/raster"
)

type ImageInfo struct {
	Name      string `json:"name"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
}

func (i ImageInfo) Size() geometry.Size {
	return geometry.Size{Width: float64(i.Width), Height: float64(i.Height)}
}

// readImage decodes an uploaded or opened image. The header is probed first
// so the reported dimensions match what the decoder saw, after EXIF
// orientation is applied.
func readImage(name string, r io.Reader) (image.Image, ImageInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ImageInfo{}, fmt.Errorf("failed to read %s: %w", name, err)
	}

	info := ImageInfo{
		Name:      filepath.Base(name),
		SizeBytes: int64(len(data)),
	}
	if _, format, err := raster.DecodeConfig(bytes.NewReader(data)); err == nil {
		info.Format = format
	}

	img, err := raster.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ImageInfo{}, fmt.Errorf("failed to load %s: %w", name, err)
	}
	if info.Format == "" {
		info.Format = "webp"
	}
	b := img.Bounds()
	info.Width, info.Height = b.Dx(), b.Dy()
	return img, info, nil
}

func openImage(path string) (image.Image, ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ImageInfo{}, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()
	return readImage(path, f)
}
