package geoman

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// CELEvaluatorOption configures the CEL engine.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache reuses checked programs across queries.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry declares every registry helper as a CEL function
// taking one or two dynamic arguments.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.functions = registry.withDefaults()
	}
}

// celProgram keeps the environment next to the program it was checked in.
type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{functions: DefaultFunctions()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx QueryContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEngineError("cel", ErrQueryEmpty)
	}
	ctx = ctx.withDefaults()
	compiled, err := e.program(expression, ctx.Bindings)
	if err != nil {
		return nil, wrapQueryError("cel", expression, ctx.layerLabel(), err)
	}
	vars := make(map[string]any, len(ctx.Bindings)+2)
	vars["now"] = ctx.Now
	vars["args"] = ctx.Args
	for name, value := range ctx.Bindings {
		vars[name] = value
	}
	out, _, err := compiled.program.Eval(vars)
	if err != nil {
		return nil, wrapQueryError("cel", expression, ctx.layerLabel(), err)
	}
	return out.Value(), nil
}

// program caches by expression and binding names: every binding is declared
// as a variable, so a different binding set needs a different environment.
func (e *celEvaluator) program(expression string, bindings map[string]any) (*celProgram, error) {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	key := "cel:" + strings.Join(names, ",") + ":" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if compiled, ok := cached.(*celProgram); ok {
				return compiled, nil
			}
		}
	}

	env, err := e.env(names)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	compiled := &celProgram{env: env, program: prg}
	if e.cache != nil {
		e.cache.Set(key, compiled)
	}
	return compiled, nil
}

func (e *celEvaluator) env(bindings []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
	}
	for _, name := range bindings {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	for _, name := range e.functions.Names() {
		helper := name
		opts = append(opts, celgo.Function(helper,
			celgo.Overload(helper+"_dyn",
				[]*celgo.Type{celgo.DynType},
				celgo.DynType,
				celgo.UnaryBinding(func(arg ref.Val) ref.Val {
					return e.call(helper, arg)
				}),
			),
			celgo.Overload(helper+"_dyn_dyn",
				[]*celgo.Type{celgo.DynType, celgo.DynType},
				celgo.DynType,
				celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return e.call(helper, lhs, rhs)
				}),
			),
		))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) call(name string, args ...ref.Val) ref.Val {
	native := make([]any, 0, len(args))
	for _, arg := range args {
		value, err := celNative(arg)
		if err != nil {
			return types.NewErr("%s: %v", name, err)
		}
		native = append(native, value)
	}
	result, err := e.functions.Call(name, native...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

var anySliceType = reflect.TypeOf([]any{})

// celNative unwraps a CEL value for a Go helper. Lists become []any so
// helpers see the same shapes as under the expr engine.
func celNative(value ref.Val) (any, error) {
	if _, ok := value.(traits.Lister); ok {
		list, err := value.ConvertToNative(anySliceType)
		if err != nil {
			return nil, fmt.Errorf("list argument: %w", err)
		}
		return list, nil
	}
	return value.Value(), nil
}
