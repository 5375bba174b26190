package geoman

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownShape is returned for shape names outside ShapeKind.
	ErrUnknownShape = errors.New("geoman: unknown shape")
	// ErrNoHandler is returned when no draw handler is registered for a shape.
	ErrNoHandler = errors.New("geoman: no draw handler registered")
	// ErrNoCutHandler is returned by the cut entry points when no cut handler
	// was configured.
	ErrNoCutHandler = errors.New("geoman: no cut handler configured")
	// ErrUpdateInFlight is returned when SetGlobalOptions is called while
	// another update is still fanning out. Hosts must serialize updates.
	ErrUpdateInFlight = errors.New("geoman: global options update already in flight")
	// ErrConsumerPanic wraps a panic raised by a handler during a fan-out.
	ErrConsumerPanic = errors.New("geoman: consumer panicked")
	// ErrQueryEmpty is returned for empty layer query expressions.
	ErrQueryEmpty = errors.New("geoman: query expression must not be empty")
	// ErrNoEvaluator is returned when no query evaluator can be resolved.
	ErrNoEvaluator = errors.New("geoman: evaluator not configured")
)

// FanoutError records one consumer failing while options or mode changes were
// propagated. The fan-out itself carries on.
type FanoutError struct {
	Op     string
	Target string
	Err    error
}

func (e *FanoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("geoman: %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *FanoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FanoutFailures returns every FanoutError contained in err.
func FanoutFailures(err error) []*FanoutError {
	if err == nil {
		return nil
	}
	var out []*FanoutError
	var fe *FanoutError
	if errors.As(err, &fe) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				out = append(out, FanoutFailures(inner)...)
			}
			return out
		}
		return []*FanoutError{fe}
	}
	return nil
}

// QueryError captures evaluator metadata alongside the originating error.
type QueryError struct {
	Engine string
	Expr   string
	Layer  string
	Err    error
}

func (e *QueryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	layer := e.Layer
	if layer == "" {
		layer = "-"
	}
	return fmt.Sprintf("geoman: %s query %s layer=%s: %v", e.Engine, describeExpression(e.Expr), layer, e.Err)
}

func (e *QueryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEngineError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var queryErr *QueryError
	if errors.As(err, &queryErr) || strings.HasPrefix(err.Error(), "geoman:") {
		return err
	}
	return fmt.Errorf("geoman: %s evaluator: %w", engine, err)
}

func wrapQueryError(engine, expr, layer string, err error) error {
	if err == nil {
		return nil
	}
	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		if queryErr.Engine == "" {
			queryErr.Engine = engine
		}
		if queryErr.Expr == "" {
			queryErr.Expr = expr
		}
		if queryErr.Layer == "" {
			queryErr.Layer = layer
		}
		return queryErr
	}
	return &QueryError{Engine: engine, Expr: expr, Layer: layer, Err: err}
}
