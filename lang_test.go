package geoman_test

import (
	"context"
	"testing"

	geoman "github.com/goliatone/go-geoman"
	"github.com/goliatone/go-geoman/pkg/activity"
)

func TestSetLangMergesOverridesOntoFallback(t *testing.T) {
	ctx := context.Background()
	host := newHost(t)
	overrides := geoman.Translations{
		"tooltips": map[string]any{"placeMarker": "Klik om marker te plaatsen"},
	}

	host.PM.SetLang(ctx, "nl", overrides, "en")

	if host.PM.Lang() != "nl" {
		t.Fatalf("expected active lang nl, got %q", host.PM.Lang())
	}
	if got := host.PM.Localize("tooltips.placeMarker"); got != "Klik om marker te plaatsen" {
		t.Fatalf("expected override, got %q", got)
	}
	if got := host.PM.Localize("actions.finish"); got != "Finish" {
		t.Fatalf("expected fallback string merged in, got %q", got)
	}
	en := host.PM.Translations("en")
	if en["tooltips"].(map[string]any)["placeMarker"] != "Click to place marker" {
		t.Fatalf("fallback table must not be modified")
	}
	if host.Toolbar.Reinits() != 1 {
		t.Fatalf("expected toolbar reinit, got %d", host.Toolbar.Reinits())
	}

	var event *activity.Event
	for _, fired := range host.Map.Fired() {
		if fired.Verb == activity.VerbLangChange {
			fired := fired
			event = &fired
		}
	}
	if event == nil {
		t.Fatalf("expected langchange event")
	}
	if event.Metadata["oldLang"] != "en" || event.Metadata["activeLang"] != "nl" || event.Metadata["fallback"] != "en" {
		t.Fatalf("unexpected langchange metadata: %v", event.Metadata)
	}
	table, ok := event.Metadata["translations"].(map[string]any)
	if !ok {
		t.Fatalf("expected translations table in event, got %T", event.Metadata["translations"])
	}
	if table["actions"].(map[string]any)["cancel"] != "Cancel" {
		t.Fatalf("expected resolved table in event")
	}
}

func TestSetLangWithoutOverrides(t *testing.T) {
	ctx := context.Background()
	host := newHost(t)
	host.PM.SetLang(ctx, "de", nil, "")
	if got := host.PM.Localize("buttonTitles.editButton"); got != "Layer editieren" {
		t.Fatalf("expected builtin german table, got %q", got)
	}

	host.PM.SetLang(ctx, "", nil, "")
	if host.PM.Lang() != geoman.DefaultLang {
		t.Fatalf("expected default language, got %q", host.PM.Lang())
	}
	if host.Toolbar.Reinits() != 2 {
		t.Fatalf("expected reinit on every switch")
	}
	if got := host.PM.Localize("tooltips.unknown"); got != "tooltips.unknown" {
		t.Fatalf("expected unknown ids returned unchanged, got %q", got)
	}
}

func TestSetLangDoesNotTouchEditingState(t *testing.T) {
	ctx := context.Background()
	host := newHost(t)
	if err := host.PM.EnableDraw(ctx, geoman.Line, geoman.GlobalOptions{}); err != nil {
		t.Fatalf("enable draw: %v", err)
	}
	before := host.PM.GlobalOptions()
	host.PM.SetLang(ctx, "de", nil, "en")
	if mode := host.PM.Mode(); mode.Kind != geoman.ModeDraw || mode.Shape != geoman.Line {
		t.Fatalf("language switch changed mode: %+v", mode)
	}
	if !host.PM.GlobalOptions().Equal(before) {
		t.Fatalf("language switch changed options")
	}
}

func TestControlsDelegateToToolbar(t *testing.T) {
	host := newHost(t)
	if host.PM.ControlsVisible() {
		t.Fatalf("expected hidden toolbar")
	}
	host.PM.AddControls(geoman.ControlOptions{Position: "topleft", Buttons: map[string]bool{"cutPolygon": false}})
	if !host.PM.ControlsVisible() || host.Toolbar.Options().Position != "topleft" {
		t.Fatalf("expected visible toolbar at topleft")
	}
	host.PM.ToggleControls()
	if host.PM.ControlsVisible() {
		t.Fatalf("expected toggle to hide toolbar")
	}
	host.PM.ToggleControls()
	host.PM.RemoveControls()
	if host.PM.ControlsVisible() {
		t.Fatalf("expected removed toolbar")
	}
}

func TestSetLangCanonicalizesTags(t *testing.T) {
	ctx := context.Background()
	host := newHost(t)
	host.PM.SetLang(ctx, " DE ", nil, "EN")
	if host.PM.Lang() != "de" {
		t.Fatalf("expected canonical tag de, got %q", host.PM.Lang())
	}
	if got := host.PM.Localize("actions.finish"); got != "Beenden" {
		t.Fatalf("expected builtin german table, got %q", got)
	}
	if host.PM.Translations("DE") == nil {
		t.Fatalf("expected table lookup to canonicalize too")
	}
}
