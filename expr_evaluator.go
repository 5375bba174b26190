package geoman

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures the expr engine.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache reuses compiled programs across queries.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry exposes registry helpers as plain calls, e.g.
// is_path(kind). Built-in helpers stay available unless shadowed.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.functions = registry.withDefaults()
	}
}

// exprEvaluator runs queries with github.com/expr-lang/expr. It is the
// default engine.
type exprEvaluator struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{functions: DefaultFunctions()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) Evaluate(ctx QueryContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEngineError("expr", ErrQueryEmpty)
	}
	ctx = ctx.withDefaults()
	program, err := e.program(expression)
	if err != nil {
		return nil, wrapQueryError("expr", expression, "", err)
	}
	out, err := exprlang.Run(program, e.env(ctx))
	if err != nil {
		return nil, wrapQueryError("expr", expression, ctx.layerLabel(), err)
	}
	return out, nil
}

// program compiles once per expression. Bindings are resolved at run time so
// one program serves every layer of a query.
func (e *exprEvaluator) program(expression string) (*exprvm.Program, error) {
	key := "expr:" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}

	compileOpts := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.functions.Names() {
		helper := name
		compileOpts = append(compileOpts, exprlang.Function(helper, func(args ...any) (any, error) {
			return e.functions.Call(helper, args...)
		}))
	}
	program, err := exprlang.Compile(expression, compileOpts...)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *exprEvaluator) env(ctx QueryContext) map[string]any {
	env := make(map[string]any, len(ctx.Bindings)+2)
	env["now"] = ctx.Now
	env["args"] = ctx.Args
	for name, value := range ctx.Bindings {
		env[name] = value
	}
	return env
}
