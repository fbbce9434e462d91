package encoder

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/rs/zerolog/log"
)

const (
	// StartQuality is the first quality tried by the size search.
	StartQuality = 0.92
	// QualityStep is subtracted after every attempt that misses the target.
	QualityStep = 0.1
	// MinQuality is the inclusive floor at which the search gives up.
	MinQuality = 0.1
	// MaxAttempts bounds the number of encodes per search.
	MaxAttempts = 10
)

// Result is the outcome of one encode request.
type Result struct {
	Data     []byte
	Format   Format
	Quality  float64
	Attempts int
	// TargetKB is zero when no size target was requested.
	TargetKB int
	// TargetMissed is set when even the last attempt is larger than
	// TargetKB. The data is still the best effort and usable.
	TargetMissed bool
}

// SizeKB returns the output size in KiB.
func (r Result) SizeKB() float64 {
	return float64(len(r.Data)) / 1024
}

// EncodeToTarget encodes img so that it fits in targetKB, lowering the
// quality from StartQuality in QualityStep decrements. It returns the first
// output at or under the target, or the output of the attempt at or below
// MinQuality. A targetKB of zero or less skips the search and encodes once
// at quality.
//
// Lossless formats ignore quality, so a single attempt decides the result.
func EncodeToTarget(ctx context.Context, enc Encoder, img image.Image, f Format, targetKB int, quality float64) (Result, error) {
	if targetKB <= 0 {
		data, err := encodeOnce(ctx, enc, img, f, quality)
		if err != nil {
			return Result{}, err
		}
		return Result{Data: data, Format: f, Quality: quality, Attempts: 1}, nil
	}

	res := Result{Format: f, TargetKB: targetKB}
	for i := 0; i < MaxAttempts; i++ {
		q := stepQuality(i)
		data, err := encodeOnce(ctx, enc, img, f, q)
		if err != nil {
			return Result{}, err
		}
		res.Data, res.Quality, res.Attempts = data, q, i+1

		log.Ctx(ctx).Debug().
			Str("format", string(f)).
			Float64("quality", q).
			Float64("size_kb", res.SizeKB()).
			Int("target_kb", targetKB).
			Msg("encode attempt")

		if res.SizeKB() <= float64(targetKB) || q <= MinQuality || !f.Lossy() {
			break
		}
	}
	res.TargetMissed = res.SizeKB() > float64(targetKB)
	if res.TargetMissed && !f.Lossy() {
		// Lossless output does not depend on quality, so these are the
		// bytes the floor attempt would produce.
		res.Quality = stepQuality(MaxAttempts - 1)
	}
	return res, nil
}

// stepQuality returns the quality for attempt i, rounded to two decimals so
// repeated subtraction does not drift.
func stepQuality(i int) float64 {
	return math.Round((StartQuality-float64(i)*QualityStep)*100) / 100
}

func encodeOnce(ctx context.Context, enc Encoder, img image.Image, f Format, q float64) ([]byte, error) {
	data, err := enc.Encode(ctx, img, f, q)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s at quality %.2f produced no output", ErrEncodeFailed, f, q)
	}
	return data, nil
}
