package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Event is something that happened on a map instance, such as a mode toggle
// or a layer being created. ObjectID names the layer for layer events and
// defaults to MapID for map events.
type Event struct {
	Verb       string
	ActorID    string
	MapID      string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Valid reports whether e carries the fields every hook relies on.
func (e Event) Valid() bool {
	return strings.TrimSpace(e.Verb) != "" && strings.TrimSpace(e.ObjectType) != ""
}

// ActivityHook receives map events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify calls fn.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// OnVerbs wraps hook so it only sees events with one of verbs.
func OnVerbs(hook ActivityHook, verbs ...string) ActivityHook {
	allowed := make(map[string]struct{}, len(verbs))
	for _, verb := range verbs {
		allowed[strings.TrimSpace(verb)] = struct{}{}
	}
	return HookFunc(func(ctx context.Context, event Event) error {
		if _, ok := allowed[event.Verb]; !ok || hook == nil {
			return nil
		}
		return hook.Notify(ctx, event)
	})
}

// Hooks is an ordered list of hooks notified one after another.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes event once and hands it to every hook in order. Invalid
// events are dropped. A failing hook does not stop later ones; failures come
// back joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 || !event.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event = NormalizeEvent(event)

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// compact drops nil entries and returns nil when nothing is left.
func (h Hooks) compact() Hooks {
	var out Hooks
	for _, hook := range h {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}

// NormalizeEvent returns event with its identifiers trimmed, its metadata
// copied, ObjectID defaulted to MapID and a timestamp set.
func NormalizeEvent(event Event) Event {
	out := Event{
		Verb:       strings.TrimSpace(event.Verb),
		ActorID:    strings.TrimSpace(event.ActorID),
		MapID:      strings.TrimSpace(event.MapID),
		ObjectType: strings.TrimSpace(event.ObjectType),
		ObjectID:   strings.TrimSpace(event.ObjectID),
		Channel:    strings.TrimSpace(event.Channel),
		Metadata:   copyMetadata(event.Metadata),
		OccurredAt: event.OccurredAt,
	}
	if out.ObjectID == "" {
		out.ObjectID = out.MapID
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}

func copyMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
