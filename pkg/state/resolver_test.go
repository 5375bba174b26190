package state_test

import (
	"context"
	"errors"
	"testing"

	geoman "github.com/goliatone/go-geoman"
	"github.com/goliatone/go-geoman/layering"
	"github.com/goliatone/go-geoman/pkg/state"
	"github.com/goliatone/go-geoman/surface"
)

type failingStore struct {
	loadErr error
	saves   int
}

func (s *failingStore) Load(context.Context, state.Ref) (geoman.GlobalOptions, state.Meta, bool, error) {
	return geoman.GlobalOptions{}, state.Meta{}, false, s.loadErr
}

func (s *failingStore) Save(context.Context, state.Ref, geoman.GlobalOptions, state.Meta) (state.Meta, error) {
	s.saves++
	return state.Meta{}, nil
}

func seed(t *testing.T, store state.Store[geoman.GlobalOptions], ref state.Ref, snapshot geoman.GlobalOptions) state.Meta {
	t.Helper()
	meta, err := store.Save(context.Background(), ref, snapshot, state.Meta{})
	if err != nil {
		t.Fatalf("seed %v: %v", ref, err)
	}
	return meta
}

func TestResolveStacksScopes(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore[geoman.GlobalOptions]()
	mapMeta := seed(t, store, state.Ref{Preset: "survey", Scope: state.MapScope("m1")}, geoman.GlobalOptions{
		SnapDistance: geoman.Float(10),
		Snappable:    geoman.Bool(true),
	})
	seed(t, store, state.Ref{Preset: "survey", Scope: state.LayerScope("marker-1")}, geoman.GlobalOptions{
		SnapDistance: geoman.Float(2),
	})

	resolver := state.Resolver[geoman.GlobalOptions]{Store: store}
	stack, err := resolver.Resolve(ctx, "survey", state.MapScope("m1"), state.ShapeScope(geoman.Line), state.LayerScope("marker-1"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if stack.Len() != 2 {
		t.Fatalf("expected missing shape snapshot to be skipped, got %d layers", stack.Len())
	}
	merged := stack.Merge()
	if merged.SnapTolerance() != 2 || !merged.IsSnappable() {
		t.Fatalf("unexpected merge: %+v", merged)
	}

	_, trace, err := stack.ResolveWithTrace("snappable")
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	winner, ok := trace.Winner()
	if !ok || winner.SnapshotID != mapMeta.SnapshotID || winner.Scope.Level != layering.LevelGlobal {
		t.Fatalf("expected map snapshot to provide snappable, got %+v", winner)
	}

	if _, err := resolver.Resolve(ctx, "missing", state.MapScope("m1")); !errors.Is(err, state.ErrNoLayers) {
		t.Fatalf("expected ErrNoLayers, got %v", err)
	}
	if _, err := resolver.Resolve(ctx, "survey"); err == nil {
		t.Fatalf("expected scope error")
	}
}

func TestResolveWithDefaults(t *testing.T) {
	ctx := context.Background()
	resolver := state.Resolver[geoman.GlobalOptions]{Store: state.NewMemoryStore[geoman.GlobalOptions]()}

	stack, err := resolver.ResolveWithDefaults(ctx, "empty", geoman.DefaultGlobalOptions(), state.MapScope("m1"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !stack.Merge().Equal(geoman.DefaultGlobalOptions()) {
		t.Fatalf("expected defaults only")
	}

	defaults := geoman.NewScope(layering.LevelDefaults)
	if _, err := resolver.ResolveWithDefaults(ctx, "empty", geoman.GlobalOptions{}, defaults); err == nil {
		t.Fatalf("expected reserved level error")
	}
}

func TestResolverPropagatesLoadErrors(t *testing.T) {
	boom := errors.New("disk gone")
	resolver := state.Resolver[geoman.GlobalOptions]{Store: &failingStore{loadErr: boom}}
	if _, err := resolver.Resolve(context.Background(), "survey", state.MapScope("m1")); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestMutateValidatesBeforeSaving(t *testing.T) {
	store := &failingStore{}
	resolver := state.Resolver[geoman.GlobalOptions]{Store: store}
	ref := state.Ref{Preset: "survey", Scope: state.MapScope("m1")}

	_, _, err := resolver.Mutate(context.Background(), ref, state.Meta{}, func(options *geoman.GlobalOptions) error {
		options.SnapDistance = geoman.Float(-1)
		return nil
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if store.saves != 0 {
		t.Fatalf("expected no save, got %d", store.saves)
	}
}

func TestMutateETagAndProvenance(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore[geoman.GlobalOptions]()
	ref := state.Ref{Preset: "survey", Scope: state.MapScope("m1")}
	first := seed(t, store, ref, geoman.GlobalOptions{Editable: geoman.Bool(false)})
	resolver := state.Resolver[geoman.GlobalOptions]{Store: store}

	stack, meta, err := resolver.Mutate(ctx, ref, state.Meta{ETag: first.ETag}, func(options *geoman.GlobalOptions) error {
		options.Editable = geoman.Bool(true)
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if meta.ETag != "v2" || !stack.Merge().IsEditable() {
		t.Fatalf("unexpected mutate result: %+v", meta)
	}
	_, trace, err := stack.ResolveWithTrace("editable")
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if trace.Layers[0].SnapshotID != meta.SnapshotID {
		t.Fatalf("expected trace to carry the saved snapshot id")
	}

	_, _, err = resolver.Mutate(ctx, ref, state.Meta{ETag: first.ETag}, func(*geoman.GlobalOptions) error { return nil })
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
}

func TestApplyCommitsPresetToMap(t *testing.T) {
	ctx := context.Background()
	host := surface.NewHost("m1")
	layer := host.AddShape(geoman.Marker)
	store := state.NewMemoryStore[geoman.GlobalOptions]()
	seed(t, store, state.Ref{Preset: "survey", Scope: state.MapScope("m1")}, geoman.GlobalOptions{
		SnapDistance:  geoman.Float(42),
		SnappingOrder: []geoman.ShapeKind{"Poly"},
	})

	stack, err := state.Apply(ctx, host.PM, state.Resolver[geoman.GlobalOptions]{Store: store}, "survey")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if stack.Len() != 1 {
		t.Fatalf("unexpected stack size %d", stack.Len())
	}
	options := host.PM.GlobalOptions()
	if options.SnapTolerance() != 42 || len(options.SnappingOrder) != 1 || options.SnappingOrder[0] != geoman.Polygon {
		t.Fatalf("preset not committed: %+v", options)
	}
	if got := layer.EditHandle().Options().SnapTolerance(); got != 42 {
		t.Fatalf("expected preset to reach layers, got %v", got)
	}
	if drawer := host.Drawers[geoman.Line]; drawer.Options().SnapTolerance() != 42 {
		t.Fatalf("expected preset to reach draw handlers")
	}

	if _, err := state.Apply(ctx, nil, state.Resolver[geoman.GlobalOptions]{Store: store}, "survey"); err == nil {
		t.Fatalf("expected error for nil map instance")
	}
}
