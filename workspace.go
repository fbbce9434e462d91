package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cropforge/export"
	"cropforge/geometry"
)

var (
	errRunSuperseded  = errors.New("processing run superseded by a newer one")
	errUnknownDrag    = errors.New("unknown drag session")
	errOutputNotFound = errors.New("output size not found")
)

// Workspace is the state behind one editor: the loaded image, the crop
// editor, export settings and the artifacts of the last run.
type Workspace struct {
	mu        sync.Mutex
	image     image.Image
	info      *ImageInfo
	settings  export.Settings
	outputs   []export.OutputSpec
	drags     map[string]*geometry.Drag
	editor    *geometry.Editor
	store     *export.Store
	processor *export.Processor
}

type WorkspaceConfig struct {
	Settings  export.Settings
	Outputs   []export.OutputSpec
	Processor *export.Processor
	// DefaultCap is the side of the default square crop.
	DefaultCap float64
	// URLPrefix is the path artifact handles are served under.
	URLPrefix string
}

func NewWorkspace(cfg WorkspaceConfig) *Workspace {
	if cfg.Processor == nil {
		cfg.Processor = export.NewProcessor()
	}
	if cfg.Outputs == nil {
		cfg.Outputs = export.DefaultOutputs()
	}
	if cfg.Settings == (export.Settings{}) {
		cfg.Settings = export.DefaultSettings()
	}
	return &Workspace{
		settings:  cfg.Settings.Normalize(),
		outputs:   cfg.Outputs,
		drags:     make(map[string]*geometry.Drag),
		editor:    geometry.NewEditor(cfg.DefaultCap),
		store:     export.NewStore(cfg.URLPrefix),
		processor: cfg.Processor,
	}
}

type Snapshot struct {
	Image     *ImageInfo             `json:"image"`
	State     geometry.State         `json:"state"`
	Settings  export.Settings        `json:"settings"`
	Outputs   []export.OutputSpec    `json:"outputs"`
	Ratios    []geometry.AspectRatio `json:"ratios"`
	Artifacts []export.Handle        `json:"artifacts"`
	Handles   []geometry.Handle      `json:"handles"`
}

func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	outputs := make([]export.OutputSpec, len(w.outputs))
	copy(outputs, w.outputs)
	return Snapshot{
		Image:     w.info,
		State:     w.editor.State(),
		Settings:  w.settings,
		Outputs:   outputs,
		Ratios:    geometry.AspectRatios(),
		Artifacts: w.store.List(),
		Handles:   geometry.Handles,
	}
}

// Load replaces the image. The crop resets to the default square and the
// previous artifacts are released.
func (w *Workspace) Load(ctx context.Context, name string, r io.Reader) (ImageInfo, error) {
	img, info, err := readImage(name, r)
	if err != nil {
		return ImageInfo{}, err
	}
	w.SetImage(img, info)
	log.Ctx(ctx).Info().
		Str("filename", info.Name).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("image loaded")
	return info, nil
}

func (w *Workspace) SetImage(img image.Image, info ImageInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.drags = make(map[string]*geometry.Drag)
	w.image = img
	w.info = &info
	w.editor.Load(info.Size())
	w.store.Clear()
}

func (w *Workspace) Editor() *geometry.Editor {
	return w.editor
}

func (w *Workspace) Store() *export.Store {
	return w.store
}

// StartDrag opens a drag session and returns its id.
func (w *Workspace) StartDrag(h geometry.Handle, start geometry.Point, display geometry.Size) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// A session left open by a client that never released the pointer is
	// replaced rather than blocking every later gesture.
	for id, d := range w.drags {
		d.Dispose()
		delete(w.drags, id)
	}

	vp := geometry.Viewport{Natural: w.editor.State().Image, Display: display}
	d, err := w.editor.StartDrag(h, start, vp)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	w.drags[id] = d
	return id, nil
}

func (w *Workspace) MoveDrag(id string, p geometry.Point) (geometry.Rect, error) {
	w.mu.Lock()
	d, ok := w.drags[id]
	w.mu.Unlock()
	if !ok {
		return geometry.Rect{}, fmt.Errorf("%w: %s", errUnknownDrag, id)
	}
	return d.Move(p)
}

func (w *Workspace) EndDrag(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, ok := w.drags[id]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownDrag, id)
	}
	d.Dispose()
	delete(w.drags, id)
	return nil
}

func (w *Workspace) SetSettings(s export.Settings) (export.Settings, error) {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return export.Settings{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settings = s
	return s, nil
}

func (w *Workspace) Settings() export.Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

func (w *Workspace) AddOutput(o export.OutputSpec) []export.OutputSpec {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.outputs = append(w.outputs, o)
	return w.outputsLocked()
}

func (w *Workspace) UpdateOutput(i int, o export.OutputSpec) ([]export.OutputSpec, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.outputs) {
		return nil, fmt.Errorf("%w: %d", errOutputNotFound, i)
	}
	w.outputs[i] = o
	return w.outputsLocked(), nil
}

func (w *Workspace) RemoveOutput(i int) ([]export.OutputSpec, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.outputs) {
		return nil, fmt.Errorf("%w: %d", errOutputNotFound, i)
	}
	w.outputs = append(w.outputs[:i], w.outputs[i+1:]...)
	return w.outputsLocked(), nil
}

func (w *Workspace) SetOutputs(outputs []export.OutputSpec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.outputs = outputs
}

func (w *Workspace) outputsLocked() []export.OutputSpec {
	out := make([]export.OutputSpec, len(w.outputs))
	copy(out, w.outputs)
	return out
}

// Process runs the export pipeline on the current crop. Results of a run
// that was overtaken by a newer one, or by a new image, are dropped.
func (w *Workspace) Process(ctx context.Context) ([]export.Handle, error) {
	w.mu.Lock()
	img := w.image
	settings := w.settings
	outputs := w.outputsLocked()
	token := w.store.Begin()
	w.mu.Unlock()

	rect := w.editor.State().Rect
	artifacts, err := w.processor.Run(ctx, img, rect, settings, outputs)
	if err != nil {
		return nil, err
	}
	handles, ok := w.store.Commit(token, artifacts)
	if !ok {
		log.Ctx(ctx).Warn().Uint64("run", token).Msg("discarding stale processing run")
		return nil, errRunSuperseded
	}
	log.Ctx(ctx).Info().Uint64("run", token).Int("artifacts", len(handles)).Msg("processing finished")
	return handles, nil
}

// Close ends every drag session and releases all artifacts.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, d := range w.drags {
		d.Dispose()
		delete(w.drags, id)
	}
	w.editor.Close()
	w.store.Close()
}
