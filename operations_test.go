package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropforge/geometry"
)

const script = `[
	{"type": "drag", "handle": "se", "from": {"x": 0, "y": 0}, "path": [{"x": 50, "y": 25}, {"x": 100, "y": 50}]},
	{"type": "aspect", "key": "1:1"}
]`

func loadedEditor() *geometry.Editor {
	e := geometry.NewEditor(0)
	e.Load(geometry.Size{Width: 1000, Height: 800})
	return e
}

func TestOperationsUnmarshal(t *testing.T) {
	var ops Operations
	require.NoError(t, json.Unmarshal([]byte(script), &ops))
	require.Len(t, ops, 2)

	require.NotNil(t, ops[0].Drag)
	assert.Equal(t, geometry.SE, ops[0].Drag.Handle)
	assert.Len(t, ops[0].Drag.Path, 2)
	require.NotNil(t, ops[1].Aspect)
	assert.Equal(t, "1:1", ops[1].Aspect.Key)

	data, err := json.Marshal(ops[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"aspect","key":"1:1"}`, string(data))
}

func TestOperationsUnknownType(t *testing.T) {
	var ops Operations
	err := json.Unmarshal([]byte(`[{"type":"rotate"}]`), &ops)
	assert.ErrorContains(t, err, `unknown operation "rotate"`)
}

func TestOperationExecutorReplaysScript(t *testing.T) {
	var ops Operations
	require.NoError(t, json.Unmarshal([]byte(script), &ops))

	e := loadedEditor()
	require.NoError(t, OperationExecutor{Editor: e}.Exec(context.Background(), ops))

	st := e.State()
	assert.Equal(t, "1:1", st.Aspect.Key)
	assert.InDelta(t, 350, st.Rect.X, 1e-9)
	assert.InDelta(t, 250, st.Rect.Y, 1e-9)
	assert.InDelta(t, 400, st.Rect.Width, 1e-9)
	assert.InDelta(t, 400, st.Rect.Height, 1e-9)
	assert.False(t, e.Dragging())
}

func TestOperationExecutorDisplayScale(t *testing.T) {
	ops := Operations{{Drag: &DragOperation{
		Handle:  geometry.Move,
		Path:    []geometry.Point{{X: -10, Y: 5}},
		Display: geometry.Size{Width: 500, Height: 400},
	}}}

	e := loadedEditor()
	require.NoError(t, OperationExecutor{Editor: e}.Exec(context.Background(), ops))
	assert.Equal(t, geometry.Rect{X: 330, Y: 260, Width: 300, Height: 300}, e.State().Rect)
}

func TestOperationExecutorStopsOnError(t *testing.T) {
	ops := Operations{
		{Reset: &ResetOperation{}},
		{Aspect: &AspectOperation{Key: "5:4"}},
		{Rect: &RectOperation{Rect: geometry.Rect{X: 0, Y: 0, Width: 100, Height: 100}}},
	}

	e := loadedEditor()
	err := OperationExecutor{Editor: e}.Exec(context.Background(), ops)
	require.ErrorIs(t, err, geometry.ErrUnknownAspect)
	assert.ErrorContains(t, err, "operation 1")
	assert.Equal(t, geometry.Rect{X: 350, Y: 250, Width: 300, Height: 300}, e.State().Rect)
}

func TestReadOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.json")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))

	ops, err := readOperations(path)
	require.NoError(t, err)
	assert.Len(t, ops, 2)

	_, err = readOperations(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestOperationExecutorRectUnderAspectLock(t *testing.T) {
	ops := Operations{
		{Aspect: &AspectOperation{Key: "16:9"}},
		{Rect: &RectOperation{Rect: geometry.Rect{X: 0, Y: 0, Width: 400, Height: 400}}},
	}

	e := loadedEditor()
	require.NoError(t, OperationExecutor{Editor: e}.Exec(context.Background(), ops))
	assert.Equal(t, geometry.Rect{X: 0, Y: 0, Width: 400, Height: 225}, e.State().Rect)
}
