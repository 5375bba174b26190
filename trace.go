package geoman

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Trace shows how each scope contributed to one option path.
type Trace struct {
	Path   string       `json:"path"`
	Value  any          `json:"value,omitempty"`
	Layers []Provenance `json:"layers"`
}

// Provenance is one scope's view of a traced path.
type Provenance struct {
	Scope      Scope  `json:"scope"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
}

// Winner returns the strongest scope that set the path.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON decodes a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// ResolveWithTrace returns the merged value at path (gjson syntax over the
// JSON form, e.g. "panes.vertexPane") and where every scope stood on it.
func (s *Stack[T]) ResolveWithTrace(path string) (any, Trace, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, Trace{}, fmt.Errorf("geoman: trace path must not be empty")
	}
	trace := Trace{Path: path}
	for _, layer := range s.Layers() {
		result, err := lookupJSON(layer.Snapshot, path)
		if err != nil {
			return nil, Trace{}, err
		}
		trace.Layers = append(trace.Layers, Provenance{
			Scope:      layer.Scope,
			SnapshotID: layer.SnapshotID,
			Value:      result.Value(),
			Found:      result.Exists(),
		})
	}
	merged, err := lookupJSON(s.Merge(), path)
	if err != nil {
		return nil, Trace{}, err
	}
	trace.Value = merged.Value()
	return trace.Value, trace, nil
}

// Lookup reads one value of the committed global options by path, e.g.
// "snappingOrder.0" or "pathOptions.color".
func (pm *PM) Lookup(path string) (any, bool) {
	result, err := lookupJSON(pm.store.snapshot(), path)
	if err != nil || !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func lookupJSON(value any, path string) (gjson.Result, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("geoman: encode snapshot: %w", err)
	}
	return gjson.GetBytes(raw, path), nil
}
