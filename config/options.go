package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	geoman "github.com/goliatone/go-geoman"
)

// Logger builds a console zap logger at cfg.LogLevel.
func (c Config) Logger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if c.LogLevel != "" {
		parsed, err := zapcore.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("config: log level: %w", err)
		}
		level = parsed
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// Evaluator returns the query evaluator named by Engine.
func (c Config) Evaluator(cache geoman.ProgramCache) (geoman.Evaluator, error) {
	switch c.Engine {
	case "", EngineExpr:
		return geoman.NewExprEvaluator(geoman.ExprWithProgramCache(cache)), nil
	case EngineCEL:
		return geoman.NewCELEvaluator(geoman.CELWithProgramCache(cache)), nil
	case EngineJS:
		evaluator := geoman.NewJSEvaluator(geoman.JSWithProgramCache(cache))
		if evaluator == nil {
			return nil, fmt.Errorf("%w: js needs the js_eval build tag", geoman.ErrNoEvaluator)
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, c.Engine)
	}
}

// Controls returns the toolbar options.
func (c Config) Controls() geoman.ControlOptions {
	buttons := make(map[string]bool, len(c.Toolbar.Buttons))
	for name, visible := range c.Toolbar.Buttons {
		buttons[name] = visible
	}
	return geoman.ControlOptions{Position: c.Toolbar.Position, Buttons: buttons}
}

// PMOptions turns the configuration into geoman options. logger may be nil.
func (c Config) PMOptions(logger *zap.Logger) ([]geoman.Option, error) {
	evaluator, err := c.Evaluator(geoman.NewProgramCache())
	if err != nil {
		return nil, err
	}
	opts := []geoman.Option{
		geoman.WithDefaults(c.Options),
		geoman.WithLang(c.Lang),
		geoman.WithEvaluator(evaluator),
	}
	if c.MapID != "" {
		opts = append(opts, geoman.WithMapID(c.MapID))
	}
	if logger != nil {
		opts = append(opts, geoman.WithLogger(geoman.NewZapLogger(logger)))
	}
	return opts, nil
}
