package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies where a payload came from, e.g. a config file and the
// key inside it, or a preset store and the preset name.
type Context struct {
	Source string
	Key    string
}

func (c Context) String() string {
	switch {
	case c.Source == "" && c.Key == "":
		return "<payload>"
	case c.Key == "":
		return c.Source
	case c.Source == "":
		return c.Key
	default:
		return c.Source + "#" + c.Key
	}
}

// PreHook lets callers normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder turns loosely typed payloads (config maps, stored presets) into
// typed values by way of their JSON encoding.
type Decoder[T any] struct {
	pre    []PreHook
	post   []PostHook[T]
	strict bool
	custom CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithDisallowUnknownFields rejects keys the target type does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T. The caller's map is never modified.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for %s", ctx)
	}

	normalized, err := d.normalize(ctx, payload)
	if err != nil {
		return zero, err
	}
	result, err := d.decode(ctx, normalized)
	if err != nil {
		return zero, err
	}
	for _, hook := range d.post {
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", ctx, err)
		}
	}
	return result, nil
}

// normalize runs the pre-hooks on a private copy of payload. A hook returning
// nil keeps the map it was given.
func (d *Decoder[T]) normalize(ctx Context, payload map[string]any) (map[string]any, error) {
	current, err := clonePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("hydrate: clone payload for %s: %w", ctx, err)
	}
	for _, hook := range d.pre {
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx, err)
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

func (d *Decoder[T]) decode(ctx Context, payload map[string]any) (T, error) {
	var result T
	if d.custom != nil {
		result, err := d.custom(ctx, payload)
		if err != nil {
			return result, fmt.Errorf("hydrate: custom decoder for %s failed: %w", ctx, err)
		}
		return result, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("hydrate: marshal payload for %s: %w", ctx, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("hydrate: decode %s: %w", ctx, err)
	}
	return result, nil
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
