package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cropforge/encoder"
	"cropforge/export"
	"cropforge/geometry"
	"cropforge/raster"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("cropforge"),
		kong.Description("Crop images and export them under a target file size."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "~/.config/cropforge/config.json", "cropforge.json"),
	)
	if err := cliCtx.Run(&args.Globals); err != nil {
		return err
	}

	return nil
}

type Globals struct {
	Config  kong.ConfigFlag `help:"Load flags from a JSON config file"`
	Verbose bool            `help:"Enable verbose logging" default:"false" env:"CROPFORGE_VERBOSE"`
}

// setup configures the global logger and returns a context carrying it that
// is cancelled on interrupt.
func (g *Globals) setup() (context.Context, context.CancelFunc) {
	level := zerolog.InfoLevel
	if g.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	return log.Logger.WithContext(ctx), cancel
}

// ExportFlags are shared by every command that produces artifacts.
type ExportFlags struct {
	Format   string        `help:"Output format (png, jpeg, webp)" default:"png" enum:"png,jpeg,jpg,webp" env:"CROPFORGE_FORMAT"`
	Quality  float64       `help:"Starting encoder quality in (0, 1]" default:"0.92" env:"CROPFORGE_QUALITY"`
	TargetKB int           `name:"target-kb" help:"Target file size in KB, 0 disables the size search" default:"500" env:"CROPFORGE_TARGET_KB"`
	Label    string        `help:"Base name of exported files" default:"cropped"`
	Scaler   raster.Scaler `help:"Resampling filter for extra sizes" default:"bilinear" enum:"nearest,bilinear,catmullrom"`
	Parallel int           `help:"Extra sizes encoded concurrently" default:"1"`
	Cap      float64       `help:"Side of the default square crop" default:"300"`
}

func (f ExportFlags) settings() (export.Settings, error) {
	format, err := encoder.ParseFormat(f.Format)
	if err != nil {
		return export.Settings{}, err
	}
	s := export.Settings{Format: format, Quality: f.Quality, TargetSizeKB: f.TargetKB}.Normalize()
	return s, s.Validate()
}

func (f ExportFlags) processor() *export.Processor {
	p := export.NewProcessor()
	p.Scaler = f.Scaler
	p.Label = f.Label
	p.Parallelism = f.Parallel
	return p
}

type serveCmd struct {
	ExportFlags
	Addr string `help:"Address to listen on" default:"localhost:0" env:"CROPFORGE_ADDR"`
	Open bool   `help:"Open the browser automatically when the server starts" default:"true" negatable:""`
	Out  string `help:"Directory the save endpoint writes artifacts to" type:"path"`
}

func (cmd *serveCmd) Run(g *Globals) error {
	ctx, cancel := g.setup()
	defer cancel()

	settings, err := cmd.settings()
	if err != nil {
		return err
	}
	ws := NewWorkspace(WorkspaceConfig{
		Settings:   settings,
		Processor:  cmd.processor(),
		DefaultCap: cmd.Cap,
		URLPrefix:  artifactsPath,
	})
	ws.Store().OnRelease(func(h export.Handle) {
		log.Ctx(ctx).Debug().Str("id", h.ID).Str("artifact", h.Name).Msg("artifact released")
	})

	app := NewWebApp(Config{
		Workspace: ws,
		Addr:      cmd.Addr,
		OutputDir: cmd.Out,
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Msgf("Server started at %s", addr)
			if cmd.Open {
				if err := openBrowser(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
	})

	return app.Run(ctx)
}

type cropCmd struct {
	ExportFlags
	File   string        `arg:"" help:"Image to crop" type:"existingfile"`
	Rect   string        `help:"Crop rectangle in source pixels as x,y,w,h"`
	Ops    string        `help:"JSON file with editor operations to replay" type:"existingfile"`
	Aspect string        `help:"Aspect ratio to lock before cropping (free, 1:1, 4:3, 16:9, 21:9, 9:16, 3:4)"`
	Size   []string      `help:"Extra output size as WxH, repeatable"`
	Out    string        `help:"Output directory" default:"." type:"path"`
	JSON   bool          `help:"Print artifact metadata as JSON lines"`
	Delay  time.Duration `help:"Pause between saved files" default:"200ms"`
}

func (cmd *cropCmd) Run(g *Globals) error {
	ctx, cancel := g.setup()
	defer cancel()

	settings, err := cmd.settings()
	if err != nil {
		return err
	}
	outputs := make([]export.OutputSpec, 0, len(cmd.Size))
	for _, s := range cmd.Size {
		o := export.ParseOutputSpec(s)
		if !o.Enabled {
			return fmt.Errorf("invalid size %q, expected WxH", s)
		}
		outputs = append(outputs, o)
	}

	img, info, err := openImage(cmd.File)
	if err != nil {
		return err
	}
	ws := NewWorkspace(WorkspaceConfig{
		Settings:   settings,
		Outputs:    outputs,
		Processor:  cmd.processor(),
		DefaultCap: cmd.Cap,
	})
	defer ws.Close()
	ws.SetImage(img, info)

	if err := cmd.edit(ctx, ws.Editor()); err != nil {
		return err
	}

	handles, err := ws.Process(ctx)
	if err != nil {
		return err
	}
	if cmd.JSON {
		printJSONL(handles)
	}
	for _, h := range handles {
		if h.Err != nil {
			log.Ctx(ctx).Warn().Err(h.Err).Str("artifact", h.Name).Msg("skipping failed artifact")
			continue
		}
		log.Ctx(ctx).Info().
			Str("artifact", h.Name).
			Str("dimensions", h.Dimensions).
			Float64("size_kb", h.SizeKB).
			Float64("quality", h.Quality).
			Bool("target_missed", h.TargetMissed).
			Msg("artifact ready")
	}
	return export.DownloadAll(ctx, handles, export.DirSink{Dir: cmd.Out}, cmd.Delay)
}

// edit applies the aspect lock, the explicit rectangle and the replayed
// operations, in that order.
func (cmd *cropCmd) edit(ctx context.Context, editor *geometry.Editor) error {
	if cmd.Aspect != "" {
		if _, err := editor.SetAspect(cmd.Aspect); err != nil {
			return err
		}
	}
	if cmd.Rect != "" {
		r, err := parseRect(cmd.Rect)
		if err != nil {
			return err
		}
		editor.SetRect(r)
	}
	if cmd.Ops != "" {
		ops, err := readOperations(cmd.Ops)
		if err != nil {
			return err
		}
		executor := OperationExecutor{Editor: editor}
		if err := executor.Exec(ctx, ops); err != nil {
			return err
		}
	}
	return nil
}

type ratiosCmd struct{}

func (cmd *ratiosCmd) Run() error {
	printJSONL(geometry.AspectRatios())
	return nil
}

type cliArgs struct {
	Globals

	Serve  serveCmd  `cmd:"" default:"withargs" help:"Start the editor API server"`
	Crop   cropCmd   `cmd:"" help:"Crop and export an image without a server"`
	Ratios ratiosCmd `cmd:"" help:"List the aspect ratio presets"`
}

// parseRect reads "x,y,w,h" in source pixels.
func parseRect(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("invalid rect %q, expected x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("invalid rect %q: %w", s, err)
		}
		v[i] = f
	}
	return geometry.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func printJSONL[T any](data []T) {
	enc := json.NewEncoder(os.Stdout)
	for _, item := range data {
		if err := enc.Encode(item); err != nil {
			log.Error().Err(err).Msg("Failed to encode item to JSON")
			continue
		}
	}
}
