package geoman_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	geoman "github.com/goliatone/go-geoman"
	"github.com/goliatone/go-geoman/pkg/activity"
	"github.com/goliatone/go-geoman/surface"
)

func newHost(t *testing.T, opts ...geoman.Option) *surface.Host {
	t.Helper()
	return surface.NewHost("map-test", opts...)
}

func TestSetGlobalOptionsSnappableScenario(t *testing.T) {
	ctx := context.Background()
	host := newHost(t)
	enabled := host.AddShape(geoman.Polygon)
	idle := host.AddShape(geoman.Line)
	if err := enabled.Handle().Enable(host.PM.GlobalOptions()); err != nil {
		t.Fatalf("enable handle: %v", err)
	}

	before := host.PM.GlobalOptions()
	if err := host.PM.SetGlobalOptions(ctx, geoman.GlobalOptions{Snappable: geoman.Bool(false)}); err != nil {
		t.Fatalf("SetGlobalOptions: %v", err)
	}

	after := host.PM.GlobalOptions()
	if after.IsSnappable() {
		t.Fatalf("expected snappable=false after update")
	}
	after.Snappable = before.Snappable
	if !after.Equal(before) {
		t.Fatalf("expected every other field unchanged")
	}

	for _, shape := range []*surface.Shape{enabled, idle} {
		received := shape.EditHandle().Received()
		if len(received) == 0 {
			t.Fatalf("layer %s did not receive setOptions", shape.ID())
		}
		if received[len(received)-1].IsSnappable() {
			t.Fatalf("layer %s received snappable=true", shape.ID())
		}
	}
	if enabled.EditHandle().Applied() != 1 {
		t.Fatalf("expected enabled handle to re-apply once, got %d", enabled.EditHandle().Applied())
	}
	if idle.EditHandle().Applied() != 0 {
		t.Fatalf("expected disabled handle not to re-apply")
	}
	for kind, drawer := range host.Drawers {
		if drawer.Options().IsSnappable() {
			t.Fatalf("draw handler %s still snappable", kind)
		}
	}
}

func TestSetGlobalOptionsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	host := newHost(t)
	patch := geoman.GlobalOptions{
		SnappingOrder: []geoman.ShapeKind{geoman.Marker, geoman.Line},
		Panes:         map[string]string{geoman.VertexPane: "vertices"},
	}
	if err := host.PM.SetGlobalOptions(ctx, patch); err != nil {
		t.Fatalf("first update: %v", err)
	}
	first := host.PM.GlobalOptions()
	if err := host.PM.SetGlobalOptions(ctx, patch); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if !host.PM.GlobalOptions().Equal(first) {
		t.Fatalf("expected state to stabilise after first application")
	}
	if !first.Equal(geoman.DefaultGlobalOptions().Merge(patch)) {
		t.Fatalf("expected committed options to equal merge(previous, patch)")
	}
}

func TestApplyGlobalOptionsTwiceIsStable(t *testing.T) {
	ctx := context.Background()
	host := newHost(t)
	shapes := []*surface.Shape{
		host.AddShape(geoman.Marker),
		host.AddShape(geoman.Circle, surface.WithLocalOptions(geoman.GlobalOptions{
			PathOptions: &geoman.PathOptions{Color: geoman.String("blue")},
		})),
	}
	if err := host.PM.EnableGlobalEditMode(ctx); err != nil {
		t.Fatalf("edit mode: %v", err)
	}
	if err := host.PM.ApplyGlobalOptions(); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	first := make([]geoman.GlobalOptions, len(shapes))
	for i, shape := range shapes {
		first[i] = shape.EditHandle().Visible()
	}
	if err := host.PM.ApplyGlobalOptions(); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	for i, shape := range shapes {
		if !reflect.DeepEqual(first[i], shape.EditHandle().Visible()) {
			t.Fatalf("visible state of %s changed between applies", shape.ID())
		}
	}
}

func TestCircleMarkerPausedWhileEditableChanges(t *testing.T) {
	ctx := context.Background()
	host := newHost(t)
	if err := host.PM.SetGlobalOptions(ctx, geoman.GlobalOptions{Editable: geoman.Bool(true)}); err != nil {
		t.Fatalf("seed editable: %v", err)
	}
	if err := host.PM.EnableDraw(ctx, geoman.CircleMarker, geoman.GlobalOptions{}); err != nil {
		t.Fatalf("enable draw: %v", err)
	}
	drawer := host.Drawers[geoman.CircleMarker]
	drawer.ResetCalls()

	if err := host.PM.SetGlobalOptions(ctx, geoman.GlobalOptions{Editable: geoman.Bool(false)}); err != nil {
		t.Fatalf("SetGlobalOptions: %v", err)
	}

	want := []string{"disable", "setOptions", "enable"}
	if got := drawer.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected CircleMarker calls\nwant: %v\n got: %v", want, got)
	}
	if !drawer.Enabled() {
		t.Fatalf("expected CircleMarker drawing to resume")
	}
	if drawer.Options().IsEditable() {
		t.Fatalf("expected resumed session to reflect editable=false")
	}

	drawer.ResetCalls()
	if err := host.PM.SetGlobalOptions(ctx, geoman.GlobalOptions{Snappable: geoman.Bool(false)}); err != nil {
		t.Fatalf("unrelated update: %v", err)
	}
	if got := drawer.Calls(); !reflect.DeepEqual(got, []string{"setOptions"}) {
		t.Fatalf("expected no pause for unrelated change, got %v", got)
	}
}

func TestCustomPauseRule(t *testing.T) {
	ctx := context.Background()
	rule := geoman.PauseRule{
		Shape: geoman.Line,
		Changed: func(current, next geoman.GlobalOptions) bool {
			return current.SnapTolerance() != next.SnapTolerance()
		},
	}
	host := newHost(t, geoman.WithPauseRule(rule))
	if err := host.PM.EnableDraw(ctx, geoman.Line, geoman.GlobalOptions{}); err != nil {
		t.Fatalf("enable draw: %v", err)
	}
	drawer := host.Drawers[geoman.Line]
	drawer.ResetCalls()
	if err := host.PM.SetGlobalOptions(ctx, geoman.GlobalOptions{SnapDistance: geoman.Float(5)}); err != nil {
		t.Fatalf("SetGlobalOptions: %v", err)
	}
	if got := drawer.Calls(); !reflect.DeepEqual(got, []string{"disable", "setOptions", "enable"}) {
		t.Fatalf("expected Line to be paused, got %v", got)
	}
}

func TestFanoutFailuresDoNotAbort(t *testing.T) {
	ctx := context.Background()
	host := newHost(t)
	boom := errors.New("boom")
	host.Drawers[geoman.Line].FailOn("setOptions", boom)
	broken := host.AddShape(geoman.Polygon)
	broken.EditHandle().FailOn("setOptions", boom)
	healthy := host.AddShape(geoman.Polygon)

	err := host.PM.SetGlobalOptions(ctx, geoman.GlobalOptions{SnapDistance: geoman.Float(42)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined fan-out error, got %v", err)
	}
	failures := geoman.FanoutFailures(err)
	if len(failures) != 2 {
		t.Fatalf("expected 2 fan-out failures, got %d (%v)", len(failures), err)
	}
	if failures[0].Target != string(geoman.Line) || failures[1].Target != broken.ID() {
		t.Fatalf("unexpected failure targets: %s, %s", failures[0].Target, failures[1].Target)
	}

	if host.PM.GlobalOptions().SnapTolerance() != 42 {
		t.Fatalf("expected the merge to be committed despite failures")
	}
	if host.Drawers[geoman.Rectangle].Options().SnapTolerance() != 42 {
		t.Fatalf("expected handlers after the failing one to be updated")
	}
	received := healthy.EditHandle().Received()
	if len(received) != 1 || received[0].SnapTolerance() != 42 {
		t.Fatalf("expected healthy layer to be updated, got %d updates", len(received))
	}
}

type reentrantHandler struct {
	*surface.Drawer
	pm    *geoman.PM
	patch geoman.GlobalOptions
	err   error
}

func (h *reentrantHandler) SetOptions(options geoman.GlobalOptions) error {
	if h.pm != nil && h.err == nil {
		h.err = h.pm.SetGlobalOptions(context.Background(), h.patch)
	}
	return h.Drawer.SetOptions(options)
}

func TestSetGlobalOptionsRejectsReentrantUpdates(t *testing.T) {
	ctx := context.Background()
	handler := &reentrantHandler{
		Drawer: surface.NewDrawer(geoman.Marker),
		patch:  geoman.GlobalOptions{SnapDistance: geoman.Float(1)},
	}
	pm := geoman.New(surface.NewMap("reentrant"), geoman.WithShapeHandler(geoman.Marker, handler))
	handler.pm = pm

	if err := pm.SetGlobalOptions(ctx, geoman.GlobalOptions{SnapDistance: geoman.Float(99)}); err != nil {
		t.Fatalf("outer update: %v", err)
	}
	if !errors.Is(handler.err, geoman.ErrUpdateInFlight) {
		t.Fatalf("expected nested update to be rejected, got %v", handler.err)
	}
	if pm.GlobalOptions().SnapTolerance() != 99 {
		t.Fatalf("expected outer update intact, got %v", pm.GlobalOptions().SnapTolerance())
	}
	if err := pm.SetGlobalOptions(ctx, geoman.GlobalOptions{SnapDistance: geoman.Float(7)}); err != nil {
		t.Fatalf("expected guard released after update: %v", err)
	}
}

func TestLocalOverridesSurviveGlobalUpdates(t *testing.T) {
	ctx := context.Background()
	host := newHost(t)
	shape := host.AddShape(geoman.Polygon, surface.WithLocalOptions(geoman.GlobalOptions{
		PathOptions: &geoman.PathOptions{Color: geoman.String("blue")},
	}))

	for _, color := range []string{"red", "green", "black"} {
		patch := geoman.GlobalOptions{PathOptions: &geoman.PathOptions{Color: geoman.String(color), Weight: geoman.Float(3)}}
		if err := host.PM.SetGlobalOptions(ctx, patch); err != nil {
			t.Fatalf("update %s: %v", color, err)
		}
	}
	effective := shape.EditHandle().Options()
	if got := *effective.PathOptions.Color; got != "blue" {
		t.Fatalf("expected local color to win, got %q", got)
	}
	if got := *effective.PathOptions.Weight; got != 3 {
		t.Fatalf("expected global weight to flow through, got %v", got)
	}

	trace, err := shape.EditHandle().Trace("pathOptions.color")
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	winner, ok := trace.Winner()
	if !ok || winner.Scope.Name() != "layer" || winner.Value != "blue" {
		t.Fatalf("unexpected trace winner: %+v", winner)
	}
}

func TestSetGlobalOptionsRejectsInvalidPatch(t *testing.T) {
	host := newHost(t)
	before := host.PM.GlobalOptions()
	if err := host.PM.SetGlobalOptions(context.Background(), geoman.GlobalOptions{SnapDistance: geoman.Float(-3)}); err == nil {
		t.Fatalf("expected negative snap distance to be rejected")
	}
	if !host.PM.GlobalOptions().Equal(before) {
		t.Fatalf("expected no change after a rejected patch")
	}
}

func TestSetPathOptionsHonoursIgnoreShapes(t *testing.T) {
	host := newHost(t)
	style := geoman.PathOptions{Color: geoman.String("orange")}
	if err := host.PM.SetPathOptions(style, "Poly", geoman.Marker); err != nil {
		t.Fatalf("SetPathOptions: %v", err)
	}
	for kind, drawer := range host.Drawers {
		got := drawer.PathOptions().Color
		ignored := kind == geoman.Polygon || kind == geoman.Marker
		if ignored && got != nil {
			t.Fatalf("expected %s to be skipped", kind)
		}
		if !ignored && (got == nil || *got != "orange") {
			t.Fatalf("expected %s to be styled", kind)
		}
	}
}

func TestOptionsUpdatedEventCarriesChangedKeys(t *testing.T) {
	capture := &activity.CaptureHook{}
	host := newHost(t, geoman.WithActivityHooks(activity.Hooks{capture}))
	if err := host.PM.SetGlobalOptions(context.Background(), geoman.GlobalOptions{
		Snappable: geoman.Bool(false),
		Panes:     map[string]string{geoman.LayerPane: "shapes"},
	}); err != nil {
		t.Fatalf("SetGlobalOptions: %v", err)
	}
	event, ok := capture.Last(activity.VerbGlobalOptionsUpdate)
	if !ok {
		t.Fatalf("expected options updated event")
	}
	if !reflect.DeepEqual(event.Metadata["changed"], []string{"panes", "snappable"}) {
		t.Fatalf("unexpected changed keys: %v", event.Metadata["changed"])
	}
	if event.Channel != activity.DefaultChannel || event.MapID != "map-test" {
		t.Fatalf("unexpected event envelope: %+v", event)
	}
}

type panickingHandler struct {
	*surface.Drawer
}

func (h *panickingHandler) SetOptions(geoman.GlobalOptions) error {
	panic("boom")
}

func TestPanickingHandlerDoesNotAbortFanout(t *testing.T) {
	ctx := context.Background()
	m := surface.NewMap("panics")
	line := surface.NewDrawer(geoman.Line)
	pm := geoman.New(m,
		geoman.WithShapeHandler(geoman.Marker, &panickingHandler{Drawer: surface.NewDrawer(geoman.Marker)}),
		geoman.WithShapeHandler(geoman.Line, line),
	)
	shape := surface.NewShape(geoman.Polygon)
	if err := pm.AddLayer(m, shape); err != nil {
		t.Fatalf("add layer: %v", err)
	}

	err := pm.SetGlobalOptions(ctx, geoman.GlobalOptions{SnapDistance: geoman.Float(12)})
	if !errors.Is(err, geoman.ErrConsumerPanic) {
		t.Fatalf("expected recovered panic in the joined error, got %v", err)
	}
	failures := geoman.FanoutFailures(err)
	if len(failures) != 1 || failures[0].Target != string(geoman.Marker) {
		t.Fatalf("expected one Marker failure, got %v", err)
	}
	if line.Options().SnapTolerance() != 12 {
		t.Fatalf("expected Line handler to be updated")
	}
	received := shape.EditHandle().Received()
	if len(received) == 0 || received[len(received)-1].SnapTolerance() != 12 {
		t.Fatalf("expected layer handle to be updated, got %d updates", len(received))
	}
	if pm.GlobalOptions().SnapTolerance() != 12 {
		t.Fatalf("expected the merge to be committed")
	}
}

func TestPauseRuleAcceptsLegacyAlias(t *testing.T) {
	ctx := context.Background()
	rule := geoman.PauseRule{
		Shape: geoman.ShapeKind("Poly"),
		Changed: func(current, next geoman.GlobalOptions) bool {
			return current.SnapTolerance() != next.SnapTolerance()
		},
	}
	host := newHost(t, geoman.WithPauseRule(rule))
	if err := host.PM.EnableDraw(ctx, geoman.Polygon, geoman.GlobalOptions{}); err != nil {
		t.Fatalf("enable draw: %v", err)
	}
	drawer := host.Drawers[geoman.Polygon]
	drawer.ResetCalls()
	if err := host.PM.SetGlobalOptions(ctx, geoman.GlobalOptions{SnapDistance: geoman.Float(8)}); err != nil {
		t.Fatalf("SetGlobalOptions: %v", err)
	}
	if got := drawer.Calls(); !reflect.DeepEqual(got, []string{"disable", "setOptions", "enable"}) {
		t.Fatalf("expected Polygon to be paused, got %v", got)
	}
}
