package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	geoman "github.com/goliatone/go-geoman"
	"github.com/goliatone/go-geoman/layering"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// ErrNoLayers is returned when none of the requested scopes has a snapshot.
var ErrNoLayers = errors.New("state: no snapshots found")

// Metadata keys read by Ref.Identifier.
const (
	MetaMapID   = "map_id"
	MetaShape   = "shape"
	MetaLayerID = "layer_id"
)

// Ref identifies one stored snapshot of one preset.
type Ref struct {
	Preset string
	Scope  geoman.Scope
}

// Meta is storage-owned metadata used for provenance and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot for a single Ref.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Resolver loads scoped snapshots and stacks them.
type Resolver[T any] struct {
	Store Store[T]
}

type Mutator[T any] func(*T) error

// Scope helpers for the supported levels.

func MapScope(mapID string) geoman.Scope {
	return geoman.NewScope(layering.LevelGlobal, geoman.WithScopeMetadata(map[string]string{MetaMapID: mapID}))
}

func ShapeScope(shape geoman.ShapeKind) geoman.Scope {
	return geoman.NewScope(layering.LevelShape, geoman.WithScopeMetadata(map[string]string{MetaShape: shape.String()}))
}

func LayerScope(layerID string) geoman.Scope {
	return geoman.NewScope(layering.LevelLayer, geoman.WithScopeMetadata(map[string]string{MetaLayerID: layerID}))
}

// Identifier returns the storage key of r.
func (r Ref) Identifier() (string, error) {
	preset := strings.TrimSpace(r.Preset)
	if preset == "" {
		return "", fmt.Errorf("state: preset is required")
	}
	switch r.Scope.Level {
	case layering.LevelDefaults:
		return "defaults/" + preset, nil
	case layering.LevelGlobal:
		id, err := r.metadata(MetaMapID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("map/%s/%s", id, preset), nil
	case layering.LevelShape:
		name, err := r.metadata(MetaShape)
		if err != nil {
			return "", err
		}
		kind, err := geoman.ParseShapeKind(name)
		if err != nil {
			return "", fmt.Errorf("state: %w", err)
		}
		return fmt.Sprintf("shape/%s/%s", kind, preset), nil
	case layering.LevelLayer:
		id, err := r.metadata(MetaLayerID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("layer/%s/%s", id, preset), nil
	default:
		return "", fmt.Errorf("state: unsupported scope level %q", r.Scope.Level)
	}
}

func (r Ref) metadata(key string) (string, error) {
	value := strings.TrimSpace(r.Scope.Metadata[key])
	if value == "" {
		return "", fmt.Errorf("state: missing metadata key %q for scope %q", key, r.Scope.Name())
	}
	return value, nil
}

// Resolve stacks the snapshots stored for preset at scopes. Scopes without a
// snapshot are skipped.
func (r Resolver[T]) Resolve(ctx context.Context, preset string, scopes ...geoman.Scope) (*geoman.Stack[T], error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("state: at least one scope is required")
	}
	layers, err := r.load(ctx, preset, scopes)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w for preset %q", ErrNoLayers, preset)
	}
	stack, err := geoman.NewStack(layers...)
	if err != nil {
		return nil, fmt.Errorf("state: stack: %w", err)
	}
	return stack, nil
}

// ResolveWithDefaults is Resolve with defaults as the weakest layer. Stored
// snapshots may be missing entirely.
func (r Resolver[T]) ResolveWithDefaults(ctx context.Context, preset string, defaults T, scopes ...geoman.Scope) (*geoman.Stack[T], error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	for _, scope := range scopes {
		if scope.Level == layering.LevelDefaults {
			return nil, fmt.Errorf("state: scope level %q is reserved", scope.Level)
		}
	}
	layers, err := r.load(ctx, preset, scopes)
	if err != nil {
		return nil, err
	}
	defaultsScope := geoman.NewScope(layering.LevelDefaults, geoman.WithScopeLabel("Defaults"))
	layers = append(layers, geoman.NewStackLayer(defaultsScope, defaults, ""))

	stack, err := geoman.NewStack(layers...)
	if err != nil {
		return nil, fmt.Errorf("state: stack: %w", err)
	}
	return stack, nil
}

func (r Resolver[T]) load(ctx context.Context, preset string, scopes []geoman.Scope) ([]geoman.StackLayer[T], error) {
	layers := make([]geoman.StackLayer[T], 0, len(scopes)+1)
	for _, scope := range scopes {
		snapshot, meta, ok, err := r.Store.Load(ctx, Ref{Preset: preset, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", preset, scope.Name(), err)
		}
		if !ok {
			continue
		}
		layers = append(layers, geoman.NewStackLayer(scope, snapshot, meta.SnapshotID))
	}
	return layers, nil
}

type validator interface {
	Validate() error
}

// Mutate loads one snapshot, applies fn, validates the result when it has a
// Validate method, then saves. A non-empty meta.ETag must match the stored one.
func (r Resolver[T]) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator[T]) (*geoman.Stack[T], Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Preset, ref.Scope.Name(), err)
	}
	if !ok {
		var zero T
		snapshot = zero
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(&snapshot); err != nil {
		return nil, loadedMeta, err
	}
	if v, ok := any(snapshot).(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, loadedMeta, err
		}
	}

	savedMeta, err := r.Store.Save(ctx, ref, snapshot, mergeMeta(loadedMeta, meta))
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.Preset, ref.Scope.Name(), err)
	}

	stack, err := geoman.NewStack(geoman.NewStackLayer(ref.Scope, snapshot, savedMeta.SnapshotID))
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: stack: %w", err)
	}
	return stack, savedMeta, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
