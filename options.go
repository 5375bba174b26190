package geoman

import (
	"strings"

	"github.com/goliatone/go-geoman/pkg/activity"
)

// Option configures a PM instance at construction time.
type Option func(*pmConfig)

type pmConfig struct {
	mapID        string
	logger       Logger
	hooks        activity.Hooks
	activity     activity.Config
	toolbar      Toolbar
	handlers     map[ShapeKind]ShapeHandler
	cut          CutHandler
	defaults     *GlobalOptions
	pauseRules   []PauseRule
	evaluator    Evaluator
	functions    *FunctionRegistry
	programCache ProgramCache
	translations map[string]Translations
	lang         string
}

func applyOptions(opts []Option) pmConfig {
	cfg := pmConfig{
		logger:     noopLogger{},
		handlers:   make(map[ShapeKind]ShapeHandler),
		pauseRules: DefaultPauseRules(),
		activity:   activity.Config{Enabled: true},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithMapID sets the identifier carried by emitted events. The map's own ID
// is used when unset.
func WithMapID(id string) Option {
	return func(cfg *pmConfig) {
		cfg.mapID = strings.TrimSpace(id)
	}
}

// WithLogger attaches a logger. A nil logger disables logging.
func WithLogger(logger Logger) Option {
	return func(cfg *pmConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithActivityHooks attaches activity hooks. Hooks are cloned and nil entries
// dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *pmConfig) {
		cfg.hooks = normalized
	}
}

// WithActivityConfig overrides the emitter defaults (channel, actor).
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *pmConfig) {
		cfg.activity = config
	}
}

// WithToolbar attaches the visual control surface.
func WithToolbar(toolbar Toolbar) Option {
	return func(cfg *pmConfig) {
		cfg.toolbar = toolbar
	}
}

// WithShapeHandler registers the draw handler for kind. The legacy "Poly"
// name registers Polygon.
func WithShapeHandler(kind ShapeKind, handler ShapeHandler) Option {
	return func(cfg *pmConfig) {
		kind = normalizeShape(kind)
		if handler == nil || !kind.Valid() {
			return
		}
		cfg.handlers[kind] = handler
	}
}

// WithCutHandler attaches the cut handler.
func WithCutHandler(handler CutHandler) Option {
	return func(cfg *pmConfig) {
		cfg.cut = handler
	}
}

// WithDefaults merges defaults on top of DefaultGlobalOptions for the initial
// snapshot.
func WithDefaults(defaults GlobalOptions) Option {
	return func(cfg *pmConfig) {
		merged := DefaultGlobalOptions().Merge(defaults)
		cfg.defaults = &merged
	}
}

// WithPauseRule adds a rule to the pause/resume protocol run around handler
// fan-out.
func WithPauseRule(rule PauseRule) Option {
	return func(cfg *pmConfig) {
		if rule.Changed == nil {
			return
		}
		rule.Shape = normalizeShape(rule.Shape)
		cfg.pauseRules = append(cfg.pauseRules, rule)
	}
}

// WithoutDefaultPauseRules drops the built-in pause rules.
func WithoutDefaultPauseRules() Option {
	return func(cfg *pmConfig) {
		cfg.pauseRules = nil
	}
}

// WithEvaluator configures the evaluator used by FindLayersWhere.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *pmConfig) {
		cfg.evaluator = e
	}
}

// WithFunctionRegistry exposes registry functions to layer queries.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *pmConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for layer queries.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *pmConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithProgramCache registers a cache for compiled query programs.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *pmConfig) {
		cfg.programCache = cache
	}
}

// WithTranslations adds or replaces the table for lang.
func WithTranslations(lang string, table Translations) Option {
	return func(cfg *pmConfig) {
		if cfg.translations == nil {
			cfg.translations = make(map[string]Translations)
		}
		cfg.translations[lang] = table.clone()
	}
}

// WithLang sets the initial active language.
func WithLang(lang string) Option {
	return func(cfg *pmConfig) {
		cfg.lang = strings.TrimSpace(lang)
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
