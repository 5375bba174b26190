package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	geoman "github.com/goliatone/go-geoman"
	"github.com/goliatone/go-geoman/internal/hydrate"
	"github.com/goliatone/go-geoman/pkg/activity"
	"github.com/goliatone/go-geoman/surface"
)

// Script is a replayable session: shapes already on the map and the steps
// a user would take.
type Script struct {
	Shapes []ScriptShape `yaml:"shapes"`
	Steps  []Step        `yaml:"steps"`
}

// ScriptShape is a host-registered layer present before the first step.
type ScriptShape struct {
	ID     string         `yaml:"id"`
	Kind   string         `yaml:"kind"`
	Points [][2]float64   `yaml:"points"`
	Local  map[string]any `yaml:"local"`
}

// Step is one operation. Fields are read depending on Op.
type Step struct {
	Op           string         `yaml:"op"`
	Shape        string         `yaml:"shape"`
	Layer        string         `yaml:"layer"`
	Points       [][2]float64   `yaml:"points"`
	Options      map[string]any `yaml:"options"`
	Ignore       []string       `yaml:"ignore"`
	KeepEnabled  bool           `yaml:"keepEnabled"`
	Lang         string         `yaml:"lang"`
	Fallback     string         `yaml:"fallback"`
	Translations map[string]any `yaml:"translations"`
	Expr         string         `yaml:"expr"`
	Path         string         `yaml:"path"`
	// Expect, when set, is compared with the mode after the step.
	Expect string `yaml:"expect"`
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [script.yaml]",
		Short: "Replay a scripted session and print the fired events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var script Script
			if err := yaml.Unmarshal(raw, &script); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			host, logger, err := newHost(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if err := replay(cmd.Context(), host, script, cmd.OutOrStdout()); err != nil {
				return err
			}
			if exportGeoJSON, _ := cmd.Flags().GetBool("geojson"); exportGeoJSON {
				raw, err := surface.FeatureCollection(host.PM.GetGeomanLayers()).MarshalJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			}
			return nil
		},
	}
	cmd.Flags().Bool("geojson", false, "print the layers left on the map as a GeoJSON FeatureCollection")
	return cmd
}

func replay(ctx context.Context, host *surface.Host, script Script, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	layers := map[string]*surface.Shape{}
	for _, spec := range script.Shapes {
		kind, err := geoman.ParseShapeKind(spec.Kind)
		if err != nil {
			return fmt.Errorf("shape %q: %w", spec.ID, err)
		}
		opts := []surface.ShapeOption{surface.WithID(spec.ID), surface.WithPoints(vecs(spec.Points)...)}
		if spec.Local != nil {
			local, err := decodeOptions("shape "+spec.ID, spec.Local)
			if err != nil {
				return err
			}
			opts = append(opts, surface.WithLocalOptions(local))
		}
		shape := host.AddShape(kind, opts...)
		layers[shape.ID()] = shape
	}

	host.Map.On(surface.AnyEvent, func(_ context.Context, event activity.Event) error {
		fmt.Fprintf(out, "  event %s%s\n", event.Verb, formatMetadata(event.Metadata))
		return nil
	})

	for i, step := range script.Steps {
		fmt.Fprintf(out, "step %d %s\n", i+1, step.Op)
		if err := runStep(ctx, host, layers, step, out); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		if step.Expect != "" {
			if got := formatMode(host.PM.Mode()); got != step.Expect {
				return fmt.Errorf("step %d (%s): expected mode %s, got %s", i+1, step.Op, step.Expect, got)
			}
		}
	}
	fmt.Fprintf(out, "mode %s\n", formatMode(host.PM.Mode()))
	return nil
}

func runStep(ctx context.Context, host *surface.Host, layers map[string]*surface.Shape, step Step, out io.Writer) error {
	pm := host.PM
	switch step.Op {
	case "enableDraw":
		options, err := decodeOptions("enableDraw", step.Options)
		if err != nil {
			return err
		}
		return pm.EnableDraw(ctx, geoman.ShapeKind(step.Shape), options)
	case "disableDraw":
		if step.Shape == "" {
			return pm.DisableAllDraw(ctx)
		}
		return pm.DisableDraw(ctx, geoman.ShapeKind(step.Shape))
	case "finish":
		shape, err := host.Finish(ctx, geoman.ShapeKind(step.Shape), vecs(step.Points)...)
		if err != nil {
			return err
		}
		layers[shape.ID()] = shape
		return nil
	case "enableEdit":
		return pm.EnableGlobalEditMode(ctx)
	case "disableEdit":
		return pm.DisableGlobalEditMode(ctx)
	case "toggleEdit":
		return pm.ToggleGlobalEditMode(ctx)
	case "enableDrag":
		return pm.EnableGlobalDragMode(ctx)
	case "disableDrag":
		return pm.DisableGlobalDragMode(ctx)
	case "toggleDrag":
		return pm.ToggleGlobalDragMode(ctx)
	case "enableRemoval":
		return pm.EnableGlobalRemovalMode(ctx, geoman.RemovalOptions{KeepEnabled: step.KeepEnabled})
	case "disableRemoval":
		return pm.DisableGlobalRemovalMode(ctx)
	case "toggleRemoval":
		return pm.ToggleGlobalRemovalMode(ctx, geoman.RemovalOptions{KeepEnabled: step.KeepEnabled})
	case "enableCut":
		return pm.EnableGlobalCutMode(ctx, geoman.CutOptions{})
	case "disableCut":
		return pm.DisableGlobalCutMode(ctx)
	case "toggleCut":
		return pm.ToggleGlobalCutMode(ctx, geoman.CutOptions{})
	case "removalClick":
		layer, ok := layers[step.Layer]
		if !ok {
			return fmt.Errorf("unknown layer %q", step.Layer)
		}
		removed, err := pm.HandleRemovalClick(ctx, layer)
		fmt.Fprintf(out, "  removed %t\n", removed)
		return err
	case "setOptions":
		patch, err := decodeOptions("setOptions", step.Options)
		if err != nil {
			return err
		}
		return reportFanout(out, pm.SetGlobalOptions(ctx, patch))
	case "setPathOptions":
		patch, err := decodeOptions("setPathOptions", map[string]any{"pathOptions": step.Options})
		if err != nil {
			return err
		}
		ignore := make([]geoman.ShapeKind, 0, len(step.Ignore))
		for _, name := range step.Ignore {
			ignore = append(ignore, geoman.ShapeKind(name))
		}
		var path geoman.PathOptions
		if patch.PathOptions != nil {
			path = *patch.PathOptions
		}
		return reportFanout(out, pm.SetPathOptions(path, ignore...))
	case "applyOptions":
		return reportFanout(out, pm.ApplyGlobalOptions())
	case "setLang":
		pm.SetLang(ctx, step.Lang, toTranslations(step.Translations), step.Fallback)
		return nil
	case "query":
		matched, err := pm.FindLayersWhere(step.Expr)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(matched))
		for _, layer := range matched {
			ids = append(ids, layer.ID())
		}
		fmt.Fprintf(out, "  matched [%s]\n", strings.Join(ids, " "))
		return nil
	case "lookup":
		value, ok := pm.Lookup(step.Path)
		if !ok {
			fmt.Fprintf(out, "  %s unset\n", step.Path)
			return nil
		}
		fmt.Fprintf(out, "  %s = %v\n", step.Path, value)
		return nil
	case "mode":
		fmt.Fprintf(out, "  mode %s\n", formatMode(pm.Mode()))
		return nil
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

// reportFanout prints per-consumer failures and swallows them: the update
// itself went through.
func reportFanout(out io.Writer, err error) error {
	failures := geoman.FanoutFailures(err)
	if err != nil && len(failures) == 0 {
		return err
	}
	for _, failure := range failures {
		fmt.Fprintf(out, "  failed %s %s: %v\n", failure.Op, failure.Target, failure.Err)
	}
	return nil
}

func decodeOptions(key string, payload map[string]any) (geoman.GlobalOptions, error) {
	if payload == nil {
		return geoman.GlobalOptions{}, nil
	}
	decoder := hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[geoman.GlobalOptions]())
	return decoder.Decode(hydrate.Context{Source: "script", Key: key}, payload)
}

func toTranslations(table map[string]any) geoman.Translations {
	if table == nil {
		return nil
	}
	return geoman.Translations(table)
}

func formatMode(mode geoman.Mode) string {
	if mode.Kind == geoman.ModeDraw {
		return mode.Kind.String() + ":" + mode.Shape.String()
	}
	return mode.Kind.String()
}

// formatMetadata renders scalar metadata sorted by key.
func formatMetadata(metadata map[string]any) string {
	keys := make([]string, 0, len(metadata))
	for key, value := range metadata {
		switch value.(type) {
		case string, bool, int, float64:
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, metadata[key])
	}
	return b.String()
}

func vecs(points [][2]float64) []r2.Vec {
	out := make([]r2.Vec, 0, len(points))
	for _, p := range points {
		out = append(out, r2.Vec{X: p[0], Y: p[1]})
	}
	return out
}
