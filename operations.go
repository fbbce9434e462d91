package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"cropforge/geometry"
)

type Operations = []Operation

// Operation is one editor command of a replayable script. Exactly one field
// is set.
type Operation struct {
	Drag   *DragOperation
	Aspect *AspectOperation
	Rect   *RectOperation
	Reset  *ResetOperation
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var op struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &op); err != nil {
		return fmt.Errorf("failed to unmarshal operation: %w", err)
	}

	switch op.Type {
	case "drag":
		var drag DragOperation
		if err := json.Unmarshal(data, &drag); err != nil {
			return fmt.Errorf("failed to unmarshal drag operation: %w", err)
		}
		o.Drag = &drag
	case "aspect":
		var aspect AspectOperation
		if err := json.Unmarshal(data, &aspect); err != nil {
			return fmt.Errorf("failed to unmarshal aspect operation: %w", err)
		}
		o.Aspect = &aspect
	case "rect":
		var rect RectOperation
		if err := json.Unmarshal(data, &rect); err != nil {
			return fmt.Errorf("failed to unmarshal rect operation: %w", err)
		}
		o.Rect = &rect
	case "reset":
		o.Reset = &ResetOperation{}
	default:
		return fmt.Errorf("unknown operation %q", op.Type)
	}
	return nil
}

func (o Operation) MarshalJSON() ([]byte, error) {
	switch {
	case o.Drag != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*DragOperation
		}{"drag", o.Drag})
	case o.Aspect != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*AspectOperation
		}{"aspect", o.Aspect})
	case o.Rect != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*RectOperation
		}{"rect", o.Rect})
	case o.Reset != nil:
		return []byte(`{"type":"reset"}`), nil
	}
	return nil, fmt.Errorf("empty operation")
}

// DragOperation replays a pointer gesture: press on Handle at From, move
// through Path, release. Positions are in display space of size Display;
// a zero Display means source pixels.
type DragOperation struct {
	Handle  geometry.Handle  `json:"handle"`
	From    geometry.Point   `json:"from"`
	Path    []geometry.Point `json:"path"`
	Display geometry.Size    `json:"display"`
}

type AspectOperation struct {
	Key string `json:"key"`
}

type RectOperation struct {
	Rect geometry.Rect `json:"rect"`
}

type ResetOperation struct{}

// OperationExecutor applies operations to an editor in order.
type OperationExecutor struct {
	Editor *geometry.Editor
}

func (r OperationExecutor) Exec(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		log.Ctx(ctx).Debug().Msg("no operations to execute")
		return nil
	}

	for i, op := range ops {
		if err := r.executeOperation(ctx, op); err != nil {
			log.Ctx(ctx).Error().
				Err(err).
				Int("index", i).
				Interface("op", op).
				Msg("failed to execute operation")
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	log.Ctx(ctx).Debug().
		Stringer("rect", r.Editor.State().Rect).
		Int("operations", len(ops)).
		Msg("operations applied")
	return nil
}

func (r OperationExecutor) executeOperation(ctx context.Context, op Operation) error {
	switch {
	case op.Drag != nil:
		return r.executeDrag(ctx, *op.Drag)
	case op.Aspect != nil:
		_, err := r.Editor.SetAspect(op.Aspect.Key)
		return err
	case op.Rect != nil:
		r.Editor.SetRect(op.Rect.Rect)
		return nil
	case op.Reset != nil:
		r.Editor.Reset()
		return nil
	}
	return nil
}

func (r OperationExecutor) executeDrag(ctx context.Context, op DragOperation) error {
	vp := geometry.Viewport{Natural: r.Editor.State().Image, Display: op.Display}
	return r.Editor.WithDrag(op.Handle, op.From, vp, func(d *geometry.Drag) error {
		for _, p := range op.Path {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := d.Move(p); err != nil {
				return err
			}
		}
		return nil
	})
}

func readOperations(path string) (Operations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read operations %s: %w", path, err)
	}
	var ops Operations
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("failed to parse operations %s: %w", path, err)
	}
	return ops, nil
}
