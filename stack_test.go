package geoman

import (
	"errors"
	"testing"

	"github.com/goliatone/go-geoman/layering"
)

func TestNewStackRejectsBadLevels(t *testing.T) {
	if _, err := NewStack(NewStackLayer(Scope{}, GlobalOptions{}, "")); !errors.Is(err, ErrScopeLevel) {
		t.Fatalf("expected ErrScopeLevel, got %v", err)
	}
	_, err := NewStack(
		NewStackLayer(NewScope(layering.LevelGlobal), GlobalOptions{}, "a"),
		NewStackLayer(NewScope(layering.LevelGlobal), GlobalOptions{}, "b"),
	)
	if !errors.Is(err, ErrDuplicateScope) {
		t.Fatalf("expected ErrDuplicateScope, got %v", err)
	}
}

func TestStackMergeAndTrace(t *testing.T) {
	stack, err := NewStack(
		NewStackLayer(NewScope(layering.LevelDefaults), DefaultGlobalOptions(), "defaults"),
		NewStackLayer(NewScope(layering.LevelLayer, WithScopeLabel("marker-1")), GlobalOptions{
			Panes: map[string]string{VertexPane: "custom"},
		}, "local"),
		NewStackLayer(NewScope(layering.LevelGlobal), GlobalOptions{SnapDistance: Float(5)}, "global"),
	)
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	layers := stack.Layers()
	if layers[0].Scope.Level != layering.LevelLayer || layers[2].Scope.Level != layering.LevelDefaults {
		t.Fatalf("expected strongest first, got %v %v", layers[0].Scope.Level, layers[2].Scope.Level)
	}

	merged := stack.Merge()
	if merged.SnapTolerance() != 5 || merged.Pane(VertexPane) != "custom" || merged.Pane(LayerPane) != "overlayPane" {
		t.Fatalf("unexpected merge: %+v", merged)
	}

	value, trace, err := stack.ResolveWithTrace("panes.vertexPane")
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if value != "custom" {
		t.Fatalf("unexpected value %v", value)
	}
	winner, ok := trace.Winner()
	if !ok || winner.SnapshotID != "local" || winner.Scope.Label != "marker-1" {
		t.Fatalf("unexpected winner: %+v", winner)
	}
	if trace.Layers[1].Found {
		t.Fatalf("global layer does not set panes")
	}

	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Path != trace.Path || len(decoded.Layers) != 3 || decoded.Layers[0].Scope.Level != layering.LevelLayer {
		t.Fatalf("trace did not survive JSON: %+v", decoded)
	}

	if _, _, err := stack.ResolveWithTrace(" "); err == nil {
		t.Fatalf("expected empty path error")
	}
}

func TestStackWithReplacesLevel(t *testing.T) {
	base, err := NewStack(NewStackLayer(NewScope(layering.LevelGlobal), GlobalOptions{SnapDistance: Float(5)}, ""))
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	next, err := base.With(NewScope(layering.LevelGlobal), GlobalOptions{SnapDistance: Float(9)})
	if err != nil {
		t.Fatalf("with: %v", err)
	}
	if base.Merge().SnapTolerance() != 5 {
		t.Fatalf("original stack must not change")
	}
	if next.Len() != 1 || next.Merge().SnapTolerance() != 9 {
		t.Fatalf("expected replaced global level, got %+v", next.Merge())
	}
	if _, ok := next.Snapshot(layering.LevelLayer); ok {
		t.Fatalf("unexpected layer snapshot")
	}
}
