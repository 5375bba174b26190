package geoman

// AddControls shows the toolbar.
func (pm *PM) AddControls(options ControlOptions) {
	if pm.toolbar == nil {
		return
	}
	pm.toolbar.AddControls(options)
}

// RemoveControls hides the toolbar.
func (pm *PM) RemoveControls() {
	if pm.toolbar == nil {
		return
	}
	pm.toolbar.RemoveControls()
}

// ToggleControls flips toolbar visibility.
func (pm *PM) ToggleControls() {
	if pm.toolbar == nil {
		return
	}
	pm.toolbar.ToggleControls()
}

// ControlsVisible reports whether the toolbar is shown.
func (pm *PM) ControlsVisible() bool {
	return pm.toolbar != nil && pm.toolbar.IsVisible()
}
