package geoman

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// QueryContext is the environment a query expression runs in. Bindings are
// exposed as top-level variables.
type QueryContext struct {
	Bindings map[string]any
	Args     map[string]any
	Now      time.Time
}

func (c QueryContext) withDefaults() QueryContext {
	if c.Now.IsZero() {
		c.Now = time.Now().UTC()
	}
	if c.Args == nil {
		c.Args = map[string]any{}
	}
	if c.Bindings == nil {
		c.Bindings = map[string]any{}
	}
	return c
}

func (c QueryContext) layerLabel() string {
	if id, ok := c.Bindings["id"].(string); ok {
		return id
	}
	return ""
}

// Evaluator runs query expressions.
type Evaluator interface {
	Evaluate(ctx QueryContext, expression string) (any, error)
}

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type memoryProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewProgramCache returns an unbounded in-memory ProgramCache.
func NewProgramCache() ProgramCache {
	return &memoryProgramCache{programs: make(map[string]any)}
}

func (c *memoryProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	program, ok := c.programs[key]
	return program, ok
}

func (c *memoryProgramCache) Set(key string, value any) {
	c.mu.Lock()
	c.programs[key] = value
	c.mu.Unlock()
}

// OptionsReporter is implemented by edit handles that expose their effective
// options. Layer queries fall back to the global options otherwise.
type OptionsReporter interface {
	Options() GlobalOptions
}

type queryEngine struct {
	mu        sync.Mutex
	evaluator Evaluator
	functions *FunctionRegistry
	cache     ProgramCache
}

func newQueryEngine(evaluator Evaluator, functions *FunctionRegistry, cache ProgramCache) *queryEngine {
	return &queryEngine{evaluator: evaluator, functions: functions, cache: cache}
}

func (q *queryEngine) resolve() (Evaluator, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.evaluator != nil {
		return q.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if q.cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(q.cache))
	}
	if q.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(q.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	q.evaluator = evaluator
	return evaluator, nil
}

// FindLayersWhere returns the editable layers for which expression evaluates
// to true. Each evaluation sees id, kind, drawnByTool, enabled and options.
func (pm *PM) FindLayersWhere(expression string) ([]EditableLayer, error) {
	if expression == "" {
		return nil, ErrQueryEmpty
	}
	evaluator, err := pm.queries.resolve()
	if err != nil {
		return nil, err
	}
	engine := evaluatorEngineName(evaluator)
	global := pm.store.snapshot()
	start := time.Now()

	var out []EditableLayer
	for _, layer := range pm.FindLayers() {
		ctx := QueryContext{Bindings: layerBindings(layer, global)}.withDefaults()
		value, evalErr := evaluator.Evaluate(ctx, expression)
		if evalErr != nil {
			evalErr = wrapQueryError(engine, expression, layer.ID(), evalErr)
			pm.log(LogEvent{Op: "query", Target: layer.ID(), Expr: expression, Duration: time.Since(start), Err: evalErr})
			return nil, evalErr
		}
		match, ok := value.(bool)
		if !ok {
			evalErr = wrapQueryError(engine, expression, layer.ID(), fmt.Errorf("result must be bool, got %T", value))
			pm.log(LogEvent{Op: "query", Target: layer.ID(), Expr: expression, Err: evalErr})
			return nil, evalErr
		}
		if match {
			out = append(out, layer)
		}
	}
	pm.log(LogEvent{Op: "query", Target: engine, Expr: expression, Duration: time.Since(start)})
	return out, nil
}

// Evaluate runs expression against the committed global options, bound as
// options.
func (pm *PM) Evaluate(expression string) (any, error) {
	if expression == "" {
		return nil, ErrQueryEmpty
	}
	evaluator, err := pm.queries.resolve()
	if err != nil {
		return nil, err
	}
	ctx := QueryContext{Bindings: map[string]any{
		"options": optionsMap(pm.store.snapshot()),
		"mode":    pm.Mode().Kind.String(),
	}}.withDefaults()
	value, evalErr := evaluator.Evaluate(ctx, expression)
	if evalErr != nil {
		evalErr = wrapQueryError(evaluatorEngineName(evaluator), expression, "", evalErr)
	}
	pm.log(LogEvent{Op: "evaluate", Expr: expression, Err: evalErr})
	return value, evalErr
}

func layerBindings(layer EditableLayer, global GlobalOptions) map[string]any {
	handle := layer.Handle()
	options := global
	if reporter, ok := handle.(OptionsReporter); ok {
		options = reporter.Options()
	}
	return map[string]any{
		"id":          layer.ID(),
		"kind":        layer.Kind().String(),
		"drawnByTool": layer.DrawnByTool(),
		"enabled":     handle.Enabled(),
		"options":     optionsMap(options),
	}
}

// optionsMap renders options in their JSON shape so expressions use the
// camelCase keys.
func optionsMap(options GlobalOptions) map[string]any {
	raw, err := json.Marshal(options)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if jsEvaluatorAvailable() && isJSEvaluator(e) {
			return "js"
		}
		return "custom"
	}
}
