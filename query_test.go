package geoman_test

import (
	"errors"
	"fmt"
	"testing"

	geoman "github.com/goliatone/go-geoman"
	"github.com/goliatone/go-geoman/surface"
)

func queryFixture(t *testing.T, opts ...geoman.Option) *surface.Host {
	t.Helper()
	host := newHost(t, opts...)
	host.AddShape(geoman.Marker, surface.WithID("marker"))
	host.AddShape(geoman.Line, surface.WithID("line"), surface.WithLocalOptions(geoman.GlobalOptions{Snappable: geoman.Bool(false)}))
	host.AddShape(geoman.Polygon, surface.WithID("drawn-poly"), surface.DrawnByTool())
	return host
}

func TestFindLayersWhereExpr(t *testing.T) {
	host := queryFixture(t)
	cases := []struct {
		expr   string
		expect []string
	}{
		{expr: `kind == "Marker"`, expect: []string{"marker"}},
		{expr: `drawnByTool`, expect: []string{"drawn-poly"}},
		{expr: `options.snappable == false`, expect: []string{"line"}},
		{expr: `options.snapDistance >= 20 && !enabled`, expect: []string{"marker", "line", "drawn-poly"}},
		{expr: `id startsWith "nope"`, expect: []string{}},
	}
	for _, tc := range cases {
		got, err := host.PM.FindLayersWhere(tc.expr)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.expr, err)
		}
		if fmt.Sprint(layerIDs(got)) != fmt.Sprint(tc.expect) {
			t.Fatalf("%s: want %v, got %v", tc.expr, tc.expect, layerIDs(got))
		}
	}
}

func TestFindLayersWhereCEL(t *testing.T) {
	host := queryFixture(t, geoman.WithEvaluator(geoman.NewCELEvaluator(geoman.CELWithProgramCache(geoman.NewProgramCache()))))
	got, err := host.PM.FindLayersWhere(`kind in ["Line", "Polygon"] && !drawnByTool`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := layerIDs(got); len(ids) != 1 || ids[0] != "line" {
		t.Fatalf("unexpected match: %v", ids)
	}
}

func TestFindLayersWhereErrors(t *testing.T) {
	host := queryFixture(t)

	if _, err := host.PM.FindLayersWhere(""); !errors.Is(err, geoman.ErrQueryEmpty) {
		t.Fatalf("expected ErrQueryEmpty, got %v", err)
	}

	_, err := host.PM.FindLayersWhere(`kind ==`)
	var queryErr *geoman.QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("expected QueryError for bad syntax, got %v", err)
	}
	if queryErr.Engine != "expr" {
		t.Fatalf("expected expr engine, got %q", queryErr.Engine)
	}

	_, err = host.PM.FindLayersWhere(`id`)
	if !errors.As(err, &queryErr) || queryErr.Layer != "marker" {
		t.Fatalf("expected non-bool result to fail on first layer, got %v", err)
	}
}

func TestFindLayersWhereCustomFunction(t *testing.T) {
	isPath := func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("is_path expects one argument")
		}
		kind, _ := args[0].(string)
		return kind == "Line" || kind == "Polygon" || kind == "Rectangle", nil
	}
	host := queryFixture(t, geoman.WithCustomFunction("is_path", isPath))
	got, err := host.PM.FindLayersWhere(`is_path(kind)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(layerIDs(got)) != "[line drawn-poly]" {
		t.Fatalf("unexpected match: %v", layerIDs(got))
	}
}

func TestFindLayersWhereBuiltinHelpers(t *testing.T) {
	engines := map[string]geoman.Option{
		"expr": geoman.WithProgramCache(geoman.NewProgramCache()),
		"cel":  geoman.WithEvaluator(geoman.NewCELEvaluator()),
	}
	for name, opt := range engines {
		host := queryFixture(t, opt)

		got, err := host.PM.FindLayersWhere(`kind == shape("Poly")`)
		if err != nil {
			t.Fatalf("%s: shape helper: %v", name, err)
		}
		if fmt.Sprint(layerIDs(got)) != "[drawn-poly]" {
			t.Fatalf("%s: shape helper matched %v", name, layerIDs(got))
		}

		got, err = host.PM.FindLayersWhere(`rank(kind, options.snappingOrder) == 0`)
		if err != nil {
			t.Fatalf("%s: rank helper: %v", name, err)
		}
		if fmt.Sprint(layerIDs(got)) != "[marker]" {
			t.Fatalf("%s: rank helper matched %v", name, layerIDs(got))
		}
	}
}

func TestFunctionRegistryRejectsDuplicates(t *testing.T) {
	registry := geoman.DefaultFunctions()
	err := registry.Register("Shape", func(...any) (any, error) { return nil, nil })
	if !errors.Is(err, geoman.ErrFunctionExists) {
		t.Fatalf("expected ErrFunctionExists, got %v", err)
	}
	if _, err := registry.Call("missing"); !errors.Is(err, geoman.ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
	if got, err := registry.Call("SHAPE", "Poly"); err != nil || got != "Polygon" {
		t.Fatalf("expected case-insensitive call to resolve alias, got %v, %v", got, err)
	}
}

func TestEvaluateSeesOptionsAndMode(t *testing.T) {
	host := newHost(t)
	value, err := host.PM.Evaluate(`mode == "idle" && options.snappable`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != true {
		t.Fatalf("expected true, got %v", value)
	}
}

func TestLookupReadsCommittedOptions(t *testing.T) {
	host := newHost(t)
	if value, ok := host.PM.Lookup("snappingOrder.0"); !ok || value != "Marker" {
		t.Fatalf("unexpected first snapping entry: %v %v", value, ok)
	}
	if _, ok := host.PM.Lookup("pathOptions.color"); ok {
		t.Fatalf("expected unset path options")
	}
	if value, ok := host.PM.Lookup("panes.vertexPane"); !ok || value != "markerPane" {
		t.Fatalf("unexpected vertex pane: %v", value)
	}
}
