package export

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"cropforge/encoder"
	"cropforge/geometry"
	"cropforge/raster"
)

// ErrNoImageLoaded aborts a run that has nothing to extract from.
var ErrNoImageLoaded = errors.New("no image loaded")

// DefaultLabel prefixes artifact names.
const DefaultLabel = "cropped"

// Stage is a step of a processing run.
type Stage int

const (
	StageIdle Stage = iota
	StageExtracting
	StageEncodingMain
	StageEncodingExtras
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageExtracting:
		return "extracting"
	case StageEncodingMain:
		return "encoding_main"
	case StageEncodingExtras:
		return "encoding_extras"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Artifact is one produced output image. Err is set when its encode failed;
// such an artifact carries no data.
type Artifact struct {
	Name         string         `json:"name"`
	Data         []byte         `json:"-"`
	Format       encoder.Format `json:"format"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	Quality      float64        `json:"quality"`
	Attempts     int            `json:"attempts"`
	TargetMissed bool           `json:"target_missed"`
	Err          error          `json:"-"`
}

// SizeKB returns the encoded size in KiB.
func (a Artifact) SizeKB() float64 {
	return float64(len(a.Data)) / 1024
}

// Dimensions formats the pixel size as WxH.
func (a Artifact) Dimensions() string {
	return fmt.Sprintf("%dx%d", a.Width, a.Height)
}

// ArtifactName builds "<label>.<ext>" for the main crop and
// "<label>-<w>x<h>.<ext>" for extra sizes.
func ArtifactName(label string, f encoder.Format, spec *OutputSpec) string {
	if label == "" {
		label = DefaultLabel
	}
	if spec == nil {
		return fmt.Sprintf("%s.%s", label, f.Ext())
	}
	return fmt.Sprintf("%s-%dx%d.%s", label, spec.Width, spec.Height, f.Ext())
}

// Processor turns a crop of a source image into artifacts.
type Processor struct {
	Encoder encoder.Encoder
	Scaler  raster.Scaler
	Label   string
	// Parallelism bounds concurrent extra-size encodes. Values below 2
	// encode them one after another.
	Parallelism int
	// OnStage, when set, observes every stage transition.
	OnStage func(Stage)
}

// NewProcessor returns a processor using the imaging encoder.
func NewProcessor() *Processor {
	return &Processor{
		Encoder: encoder.NewImagingEncoder(),
		Scaler:  raster.BiLinear,
		Label:   DefaultLabel,
	}
}

// Run extracts rect from src and encodes the main artifact followed by one
// artifact per enabled output, in input order. An extraction failure aborts
// the run; encode failures are recorded on the artifact and do not affect
// the others.
func (p *Processor) Run(ctx context.Context, src image.Image, rect geometry.Rect, settings Settings, outputs []OutputSpec) ([]Artifact, error) {
	logger := log.Ctx(ctx)
	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrNoImageLoaded
	}

	p.enter(ctx, StageExtracting)
	crop, err := p.extract(src, rect)
	if err != nil {
		p.enter(ctx, StageIdle)
		return nil, fmt.Errorf("failed to extract crop: %w", err)
	}

	p.enter(ctx, StageEncodingMain)
	bounds := crop.Bounds()
	artifacts := []Artifact{p.encode(ctx, crop.Image(), bounds.Dx(), bounds.Dy(), settings, nil)}

	p.enter(ctx, StageEncodingExtras)
	var extras []OutputSpec
	for _, o := range outputs {
		if o.Enabled {
			extras = append(extras, o)
		}
	}
	artifacts = append(artifacts, p.encodeExtras(ctx, crop, settings, extras)...)

	p.enter(ctx, StageDone)
	for _, a := range artifacts {
		if a.Err != nil {
			logger.Error().Err(a.Err).Str("artifact", a.Name).Msg("artifact failed")
		}
	}
	return artifacts, nil
}

func (p *Processor) enter(ctx context.Context, s Stage) {
	log.Ctx(ctx).Debug().Stringer("stage", s).Msg("processing")
	if p.OnStage != nil {
		p.OnStage(s)
	}
}

func (p *Processor) extract(src image.Image, rect geometry.Rect) (*raster.Canvas, error) {
	pr := raster.PixelRect(rect.X, rect.Y, rect.Width, rect.Height)
	size := src.Bounds().Size()
	pr = pr.Intersect(image.Rect(0, 0, size.X, size.Y))
	if pr.Empty() {
		return nil, fmt.Errorf("crop %s outside image %dx%d", rect, size.X, size.Y)
	}
	c, err := raster.NewCanvas(pr.Dx(), pr.Dy(), p.Scaler)
	if err != nil {
		return nil, err
	}
	if err := c.DrawRegion(src, pr, c.Bounds()); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Processor) encodeExtras(ctx context.Context, crop *raster.Canvas, settings Settings, extras []OutputSpec) []Artifact {
	out := make([]Artifact, len(extras))
	render := func(ctx context.Context, i int) {
		spec := extras[i]
		c, err := raster.NewCanvas(spec.Width, spec.Height, p.Scaler)
		if err == nil {
			err = c.DrawRegion(crop.Image(), crop.Bounds(), c.Bounds())
		}
		if err != nil {
			out[i] = Artifact{
				Name:   ArtifactName(p.Label, settings.Format, &spec),
				Format: settings.Format,
				Width:  spec.Width,
				Height: spec.Height,
				Err:    fmt.Errorf("failed to resize to %s: %w", spec, err),
			}
			return
		}
		out[i] = p.encode(ctx, c.Image(), spec.Width, spec.Height, settings, &spec)
	}

	if p.Parallelism < 2 {
		for i := range extras {
			render(ctx, i)
		}
		return out
	}

	workers := pool.New().WithContext(ctx).WithMaxGoroutines(p.Parallelism)
	for i := range extras {
		i := i
		workers.Go(func(ctx context.Context) error {
			render(ctx, i)
			return nil
		})
	}
	_ = workers.Wait()
	return out
}

func (p *Processor) encode(ctx context.Context, img image.Image, w, h int, settings Settings, spec *OutputSpec) Artifact {
	a := Artifact{
		Name:   ArtifactName(p.Label, settings.Format, spec),
		Format: settings.Format,
		Width:  w,
		Height: h,
	}
	res, err := encoder.EncodeToTarget(ctx, p.Encoder, img, settings.Format, settings.TargetSizeKB, settings.Quality)
	if err != nil {
		a.Err = err
		return a
	}
	a.Data = res.Data
	a.Quality = res.Quality
	a.Attempts = res.Attempts
	a.TargetMissed = res.TargetMissed
	return a
}
