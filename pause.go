package geoman

// PauseRule describes when an active draw session must be suspended while
// options fan out. Changed receives the options the handler currently draws
// with and the merged options about to be applied.
type PauseRule struct {
	Shape   ShapeKind
	Changed func(current, next GlobalOptions) bool
}

// EditablePauseRule pauses kind whenever the effective editable flag changes.
func EditablePauseRule(kind ShapeKind) PauseRule {
	return PauseRule{
		Shape: normalizeShape(kind),
		Changed: func(current, next GlobalOptions) bool {
			return current.IsEditable() != next.IsEditable()
		},
	}
}

// DefaultPauseRules returns the rules installed on every new instance.
// CircleMarker sessions cannot switch editable mid-draw.
func DefaultPauseRules() []PauseRule {
	return []PauseRule{EditablePauseRule(CircleMarker)}
}

// pause disables every active handler matched by a rule and returns the
// kinds that must be resumed afterwards, in Shapes order.
func (pm *PM) pause(next GlobalOptions) ([]ShapeKind, []error) {
	var (
		paused []ShapeKind
		errs   []error
	)
	matched := make(map[ShapeKind]struct{})
	for _, rule := range pm.cfg.pauseRules {
		handler := pm.draw.handler(rule.Shape)
		if handler == nil || rule.Changed == nil {
			continue
		}
		err := pm.callSafely("pause", rule.Shape.String(), rule.Shape, func() error {
			if handler.Enabled() && rule.Changed(handler.Options(), next) {
				matched[rule.Shape] = struct{}{}
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, kind := range Shapes() {
		if _, ok := matched[kind]; !ok {
			continue
		}
		if err := pm.callSafely("pause", kind.String(), kind, pm.draw.handler(kind).Disable); err != nil {
			errs = append(errs, err)
			continue
		}
		pm.log(LogEvent{Op: "pause", Target: kind.String(), Shape: kind})
		paused = append(paused, kind)
	}
	return paused, errs
}

func (pm *PM) resume(paused []ShapeKind) []error {
	var errs []error
	for _, kind := range paused {
		handler := pm.draw.handler(kind)
		if err := pm.callSafely("resume", kind.String(), kind, func() error {
			return handler.Enable(GlobalOptions{})
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		pm.log(LogEvent{Op: "resume", Target: kind.String(), Shape: kind})
	}
	return errs
}
