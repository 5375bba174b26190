package activity

import (
	"strings"
	"time"
)

// Event verbs emitted by a map instance.
const (
	VerbLangChange          = "pm:langchange"
	VerbDrawModeToggled     = "pm:globaldrawmodetoggled"
	VerbEditModeToggled     = "pm:globaleditmodetoggled"
	VerbDragModeToggled     = "pm:globaldragmodetoggled"
	VerbRemovalModeToggled  = "pm:globalremovalmodetoggled"
	VerbCutModeToggled      = "pm:globalcutmodetoggled"
	VerbGlobalOptionsUpdate = "pm:globaloptionsupdated"
	VerbCreate              = "pm:create"
	VerbRemove              = "pm:remove"
)

// Object types carried by map events.
const (
	ObjectMap   = "map"
	ObjectLayer = "layer"
)

// LangChange describes a language switch.
type LangChange struct {
	MapID        string
	OldLang      string
	ActiveLang   string
	Fallback     string
	Translations map[string]any
	OccurredAt   time.Time
}

// BuildLangChangeEvent constructs the event fired after SetLang.
func BuildLangChangeEvent(input LangChange) Event {
	return Event{
		Verb:       VerbLangChange,
		MapID:      strings.TrimSpace(input.MapID),
		ObjectType: ObjectMap,
		Metadata: map[string]any{
			"oldLang":      input.OldLang,
			"activeLang":   input.ActiveLang,
			"fallback":     input.Fallback,
			"translations": input.Translations,
		},
		OccurredAt: input.OccurredAt,
	}
}

// ModeToggle describes a global mode being switched on or off.
type ModeToggle struct {
	MapID   string
	Verb    string
	Enabled bool
	// Shape is set for draw mode toggles.
	Shape string
}

// BuildModeToggledEvent constructs a mode toggled event. Verb selects which
// global mode the event is about.
func BuildModeToggledEvent(input ModeToggle) Event {
	metadata := map[string]any{"enabled": input.Enabled}
	if input.Shape != "" {
		metadata["shape"] = input.Shape
	}
	return Event{
		Verb:       strings.TrimSpace(input.Verb),
		MapID:      strings.TrimSpace(input.MapID),
		ObjectType: ObjectMap,
		Metadata:   metadata,
	}
}

// OptionsUpdate describes a committed global options change.
type OptionsUpdate struct {
	MapID string
	// Changed lists the top-level option keys whose value differs.
	Changed  []string
	Failures int
}

// BuildOptionsUpdatedEvent constructs the event fired after a global options
// merge was committed.
func BuildOptionsUpdatedEvent(input OptionsUpdate) Event {
	metadata := map[string]any{"failures": input.Failures}
	if len(input.Changed) > 0 {
		metadata["changed"] = append([]string(nil), input.Changed...)
	}
	return Event{
		Verb:       VerbGlobalOptionsUpdate,
		MapID:      strings.TrimSpace(input.MapID),
		ObjectType: ObjectMap,
		Metadata:   metadata,
	}
}

// LayerChange describes a layer entering or leaving the map.
type LayerChange struct {
	MapID   string
	LayerID string
	Shape   string
	// Container is the ID of the layer group or map that holds the layer.
	Container string
}

// BuildLayerCreatedEvent constructs the event fired when a drawn layer was
// added to its destination.
func BuildLayerCreatedEvent(input LayerChange) Event {
	return buildLayerEvent(VerbCreate, input)
}

// BuildLayerRemovedEvent constructs the event fired when a layer was removed.
func BuildLayerRemovedEvent(input LayerChange) Event {
	return buildLayerEvent(VerbRemove, input)
}

func buildLayerEvent(verb string, input LayerChange) Event {
	metadata := map[string]any{}
	if input.Shape != "" {
		metadata["shape"] = input.Shape
	}
	if input.Container != "" {
		metadata["container"] = input.Container
	}
	return Event{
		Verb:       verb,
		MapID:      strings.TrimSpace(input.MapID),
		ObjectType: ObjectLayer,
		ObjectID:   strings.TrimSpace(input.LayerID),
		Metadata:   metadata,
	}
}
