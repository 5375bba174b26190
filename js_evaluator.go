//go:build js_eval

package geoman

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache     ProgramCache
	functions *FunctionRegistry
	timeout   time.Duration
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{
		cache:     cfg.cache,
		functions: cfg.functions,
		timeout:   cfg.timeout,
	}
}

func (e *jsEvaluator) Evaluate(ctx QueryContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEngineError("js", ErrQueryEmpty)
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapQueryError("js", expression, ctx.layerLabel(), err)
	}
	value, err := e.run(ctx, program)
	if err != nil {
		return nil, wrapQueryError("js", expression, ctx.layerLabel(), err)
	}
	return value, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	key := "js:" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", wrapJSExpression(expression), false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *jsEvaluator) run(ctx QueryContext, program *goja.Program) (any, error) {
	vm := goja.New()
	vm.Set("now", ctx.Now)
	vm.Set("args", ctx.Args)
	for key, value := range ctx.Bindings {
		vm.Set(key, value)
	}
	for _, name := range e.functions.Names() {
		helper := name
		vm.Set(helper, func(arguments ...any) (any, error) {
			return e.functions.Call(helper, arguments...)
		})
	}
	timer := time.AfterFunc(e.timeout, func() {
		vm.Interrupt("geoman: query timed out")
	})
	defer timer.Stop()
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

func jsEvaluatorAvailable() bool {
	return true
}

func isJSEvaluator(e Evaluator) bool {
	_, ok := e.(*jsEvaluator)
	return ok
}
