package layering

import (
	"slices"
	"strings"
)

// Level identifies how strongly an option snapshot binds. Higher levels
// override lower levels when layering.
type Level int

const (
	// LevelUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	LevelUnknown Level = iota
	// LevelDefaults holds the documented defaults of a map instance.
	LevelDefaults
	// LevelGlobal holds the map-wide options set by the host application.
	LevelGlobal
	// LevelShape holds per-shape-kind overrides (e.g. options passed to a draw call).
	LevelShape
	// LevelLayer holds overrides that belong to a single layer.
	LevelLayer
)

func (l Level) String() string {
	switch l {
	case LevelDefaults:
		return "defaults"
	case LevelGlobal:
		return "global"
	case LevelShape:
		return "shape"
	case LevelLayer:
		return "layer"
	default:
		return "unknown"
	}
}

// Priority maps a level onto the numeric priority used by option stacks.
func (l Level) Priority() int {
	return int(l) * 100
}

// ParseLevel converts a string representation into the matching Level.
// Unrecognised values return LevelUnknown.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "defaults":
		return LevelDefaults
	case "global":
		return LevelGlobal
	case "shape":
		return LevelShape
	case "layer":
		return LevelLayer
	default:
		return LevelUnknown
	}
}

// Chain lists levels from strongest to weakest with duplicates and unknown
// entries removed.
type Chain struct {
	ordered []Level
}

// NewChain builds a Chain from levels in any order.
func NewChain(levels ...Level) Chain {
	filtered := make([]Level, 0, len(levels))
	for _, level := range levels {
		if level == LevelUnknown || slices.Contains(filtered, level) {
			continue
		}
		filtered = append(filtered, level)
	}
	slices.SortStableFunc(filtered, func(a, b Level) int {
		return int(b) - int(a)
	})
	return Chain{ordered: filtered}
}

// Ordered returns the chain from strongest (index 0) to weakest.
func (c Chain) Ordered() []Level {
	return slices.Clone(c.ordered)
}

// Strongest returns the first level in the chain (LevelUnknown if empty).
func (c Chain) Strongest() Level {
	if len(c.ordered) == 0 {
		return LevelUnknown
	}
	return c.ordered[0]
}

// Weakest returns the final level in the chain (LevelUnknown if empty).
func (c Chain) Weakest() Level {
	if len(c.ordered) == 0 {
		return LevelUnknown
	}
	return c.ordered[len(c.ordered)-1]
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name. Unknown names decode to LevelUnknown.
func (l *Level) UnmarshalText(text []byte) error {
	*l = ParseLevel(string(text))
	return nil
}
