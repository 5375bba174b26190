// Package config loads geoman settings from defaults, an optional YAML file
// and the environment, in that order of precedence (weakest first).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	geoman "github.com/goliatone/go-geoman"
	"github.com/goliatone/go-geoman/internal/hydrate"
)

// DefaultEnvPrefix is the prefix of environment overrides. Nested keys are
// separated by a double underscore and written in snake case, e.g.
// GEOMAN_OPTIONS__PANES__VERTEX_PANE.
const DefaultEnvPrefix = "GEOMAN_"

// Query engines understood by Config.Engine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// ErrUnknownEngine is returned for an Engine outside expr, cel and js.
var ErrUnknownEngine = errors.New("config: unknown query engine")

// Config is the host-level configuration of a map instance.
type Config struct {
	MapID    string               `json:"mapId,omitempty"`
	Lang     string               `json:"lang,omitempty"`
	Fallback string               `json:"fallback,omitempty"`
	Engine   string               `json:"engine,omitempty"`
	LogLevel string               `json:"logLevel,omitempty"`
	Options  geoman.GlobalOptions `json:"options"`
	Toolbar  Toolbar              `json:"toolbar"`
}

// Toolbar configures the initial controls.
type Toolbar struct {
	Visible  bool            `json:"visible"`
	Position string          `json:"position,omitempty"`
	Buttons  map[string]bool `json:"buttons,omitempty"`
}

// coerced lists the keys that arrive as strings from the environment.
var coerced = map[string]hydrate.Scalar{
	"toolbar.visible":                 hydrate.ScalarBool,
	"options.snappable":               hydrate.ScalarBool,
	"options.editable":                hydrate.ScalarBool,
	"options.continueDrawing":         hydrate.ScalarBool,
	"options.allowSelfIntersection":   hydrate.ScalarBool,
	"options.snapDistance":            hydrate.ScalarFloat,
	"options.snappingOrder":           hydrate.ScalarList,
	"options.pathOptions.weight":      hydrate.ScalarFloat,
	"options.pathOptions.opacity":     hydrate.ScalarFloat,
	"options.pathOptions.fillOpacity": hydrate.ScalarFloat,
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Lang:     geoman.DefaultLang,
		Fallback: geoman.DefaultLang,
		Engine:   EngineExpr,
		LogLevel: "info",
		Options:  geoman.DefaultGlobalOptions(),
		Toolbar:  Toolbar{Position: "topleft"},
	}
}

// Load reads path (skipped when empty) and then environment variables
// starting with envPrefix (DefaultEnvPrefix when empty) on top of Defaults.
func Load(path, envPrefix string) (Config, error) {
	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}
	k := koanf.New(".")

	defaults, err := toMap(Defaults())
	if err != nil {
		return Config{}, fmt.Errorf("config: encode defaults: %w", err)
	}
	if err := k.Load(confmap.Provider(defaults, ""), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envKey(envPrefix)), nil); err != nil {
		return Config{}, fmt.Errorf("config: load environment: %w", err)
	}

	source := path
	if source == "" {
		source = "env"
	}
	decoder := hydrate.NewDecoder(
		hydrate.WithPreHook[Config](hydrate.CoerceStrings(coerced)),
		hydrate.WithPostHook[Config](validate),
	)
	return decoder.Decode(hydrate.Context{Source: source}, k.Raw())
}

func validate(_ hydrate.Context, cfg *Config) error {
	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))
	switch cfg.Engine {
	case "":
		cfg.Engine = EngineExpr
	case EngineExpr, EngineCEL, EngineJS:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
	cfg.Options.SnappingOrder = geoman.NormalizeOrder(cfg.Options.SnappingOrder)
	return cfg.Options.Validate()
}

// envKey maps GEOMAN_OPTIONS__SNAP_DISTANCE to options.snapDistance.
func envKey(prefix string) func(string, string) (string, any) {
	return func(key, value string) (string, any) {
		key = strings.TrimPrefix(key, prefix)
		segments := strings.Split(strings.ToLower(key), "__")
		for i, segment := range segments {
			segments[i] = camel(segment)
		}
		return strings.Join(segments, "."), value
	}
}

func camel(snake string) string {
	var b strings.Builder
	upper := false
	for _, r := range snake {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toMap(cfg Config) (map[string]any, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
