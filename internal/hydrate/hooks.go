package hydrate

import (
	"fmt"
	"strconv"
	"strings"
)

// Scalar is the target type of a coerced string value.
type Scalar int

const (
	ScalarBool Scalar = iota + 1
	ScalarFloat
	// ScalarList splits a comma separated string into a list of trimmed,
	// non-empty strings.
	ScalarList
)

// CoerceStrings converts string values found at the given dotted paths into
// the requested scalar type. Environment variables only ever produce strings,
// so config loaded from the environment goes through this hook. Values that
// are already typed are left alone.
func CoerceStrings(paths map[string]Scalar) PreHook {
	return func(_ Context, payload map[string]any) (map[string]any, error) {
		for path, scalar := range paths {
			parent, key, ok := walk(payload, path)
			if !ok {
				continue
			}
			raw, isString := parent[key].(string)
			if !isString {
				continue
			}
			value, err := coerce(raw, scalar)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			parent[key] = value
		}
		return payload, nil
	}
}

func coerce(raw string, scalar Scalar) (any, error) {
	raw = strings.TrimSpace(raw)
	switch scalar {
	case ScalarBool:
		return strconv.ParseBool(raw)
	case ScalarFloat:
		return strconv.ParseFloat(raw, 64)
	case ScalarList:
		out := []any{}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown scalar %d", scalar)
	}
}

// walk returns the map holding the last segment of path.
func walk(payload map[string]any, path string) (map[string]any, string, bool) {
	segments := strings.Split(path, ".")
	current := payload
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			return nil, "", false
		}
		current = next
	}
	last := segments[len(segments)-1]
	if _, ok := current[last]; !ok {
		return nil, "", false
	}
	return current, last, true
}
