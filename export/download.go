package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultDownloadDelay spaces browser download triggers so they are not
// collapsed into one by download throttling.
const DefaultDownloadDelay = 200 * time.Millisecond

// Sink receives downloaded artifacts.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, name string, data []byte) error

func (fn SinkFunc) Save(ctx context.Context, name string, data []byte) error {
	return fn(ctx, name, data)
}

// DirSink writes artifacts as files under Dir.
type DirSink struct {
	Dir string
}

func (d DirSink) Save(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", d.Dir, err)
	}
	p := filepath.Join(d.Dir, filepath.Base(name))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", p, err)
	}
	return nil
}

// DownloadAll hands every successful artifact to sink one at a time, waiting
// delay between consecutive saves. Failed artifacts are skipped.
func DownloadAll(ctx context.Context, handles []Handle, sink Sink, delay time.Duration) error {
	sent := 0
	for _, h := range handles {
		if h.Err != nil || len(h.Data) == 0 {
			log.Ctx(ctx).Warn().Str("artifact", h.Name).Msg("skipping failed artifact")
			continue
		}
		if sent > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := sink.Save(ctx, h.Name, h.Data); err != nil {
			return fmt.Errorf("failed to save %s: %w", h.Name, err)
		}
		log.Ctx(ctx).Info().Str("artifact", h.Name).Float64("size_kb", h.SizeKB).Msg("saved")
		sent++
	}
	return nil
}
