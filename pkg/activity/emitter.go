package activity

import (
	"context"
	"strings"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "geoman"

// Config controls what a map instance emits and how events are stamped.
// Verbs restricts emission to the listed verbs; empty means every verb.
type Config struct {
	Enabled bool
	Channel string
	ActorID string
	Verbs   []string
}

// Emitter stamps map events with the configured channel and actor and hands
// them to the hooks.
type Emitter struct {
	hooks   Hooks
	channel string
	actorID string
	verbs   map[string]struct{}
}

// NewEmitter returns an emitter for hooks. A disabled config or an empty hook
// list yields an emitter that drops everything.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	e := &Emitter{
		channel: strings.TrimSpace(cfg.Channel),
		actorID: strings.TrimSpace(cfg.ActorID),
	}
	if e.channel == "" {
		e.channel = DefaultChannel
	}
	if cfg.Enabled {
		e.hooks = hooks.compact()
	}
	for _, verb := range cfg.Verbs {
		if verb = strings.TrimSpace(verb); verb != "" {
			if e.verbs == nil {
				e.verbs = make(map[string]struct{}, len(cfg.Verbs))
			}
			e.verbs[verb] = struct{}{}
		}
	}
	return e
}

// Enabled reports whether Emit can reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

// Accepts reports whether events with verb pass the verb filter.
func (e *Emitter) Accepts(verb string) bool {
	if e == nil || e.verbs == nil {
		return true
	}
	_, ok := e.verbs[strings.TrimSpace(verb)]
	return ok
}

// Emit stamps event and notifies the hooks. Filtered verbs are dropped
// silently.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() || !e.Accepts(event.Verb) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.actorID
	}
	return e.hooks.Notify(ctx, event)
}
