package geoman

import "time"

// defaultJSTimeout bounds a single query run in the JS engine.
const defaultJSTimeout = 250 * time.Millisecond

type jsEvaluatorConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
	timeout   time.Duration
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*jsEvaluatorConfig)

// JSWithProgramCache applies a ProgramCache to the JS evaluator.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry exposes registry helpers as global functions.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		cfg.functions = registry.withDefaults()
	}
}

// JSWithTimeout interrupts a query that runs longer than d. Zero or negative
// values keep the default.
func JSWithTimeout(d time.Duration) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

func applyJSEvaluatorOptions(opts []JSEvaluatorOption) jsEvaluatorConfig {
	cfg := jsEvaluatorConfig{functions: DefaultFunctions(), timeout: defaultJSTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
