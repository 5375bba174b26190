package geoman

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-geoman/pkg/activity"
)

// PM orchestrates drawing, editing and option propagation for one map. All
// collaborators are called synchronously from the goroutine that invokes a
// PM method.
type PM struct {
	m     Map
	mapID string
	cfg   pmConfig

	store    *optionStore
	updating atomic.Bool

	draw        *drawDispatcher
	edit        *globalMode
	drag        *globalMode
	removal     *globalMode
	keepRemoval atomic.Bool
	cut         CutHandler

	toolbar Toolbar
	lang    *langState
	emitter *activity.Emitter
	queries *queryEngine
}

// New attaches a PM to m. Registered draw handlers receive the initial
// options before New returns.
func New(m Map, opts ...Option) *PM {
	cfg := applyOptions(opts)
	initial := DefaultGlobalOptions()
	if cfg.defaults != nil {
		initial = cfg.defaults.Clone()
	}
	mapID := cfg.mapID
	if mapID == "" && m != nil {
		mapID = m.ID()
	}

	pm := &PM{
		m:       m,
		mapID:   mapID,
		cfg:     cfg,
		store:   newOptionStore(initial),
		draw:    newDrawDispatcher(cfg.handlers),
		removal: newRemovalMode(),
		cut:     cfg.cut,
		toolbar: cfg.toolbar,
		lang:    newLangState(cfg.lang, cfg.translations),
		emitter: activity.NewEmitter(cfg.hooks, cfg.activity),
	}
	pm.edit = pm.newEditMode()
	pm.drag = pm.newDragMode()
	pm.queries = newQueryEngine(cfg.evaluator, cfg.functions, cfg.programCache)
	if err := pm.lang.rebuild(); err != nil {
		pm.log(LogEvent{Op: "setLang", Target: pm.lang.active, Err: err})
	}

	// failures are logged by callSafely
	for _, kind := range Shapes() {
		if handler := pm.draw.handler(kind); handler != nil {
			pm.callSafely("setOptions", kind.String(), kind, func() error {
				return handler.SetOptions(initial.Clone())
			})
		}
	}
	return pm
}

// Map returns the map the PM is attached to.
func (pm *PM) Map() Map {
	return pm.m
}

// MapID returns the identifier carried by emitted events.
func (pm *PM) MapID() string {
	return pm.mapID
}

// fire delivers event to listeners on the map and to the activity hooks.
// Delivery failures are logged; they never fail the operation that fired.
func (pm *PM) fire(ctx context.Context, event activity.Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if target, ok := pm.m.(EventTarget); ok {
		if err := target.Fire(ctx, event); err != nil {
			pm.log(LogEvent{Op: "fire", Target: event.Verb, Err: err})
		}
	}
	if err := pm.emitter.Emit(ctx, event); err != nil {
		pm.log(LogEvent{Op: "activity", Target: event.Verb, Err: err})
	}
}

func (pm *PM) log(event LogEvent) {
	pm.cfg.logger.Log(event)
}
