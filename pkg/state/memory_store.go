package state

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-geoman/layering"
)

// MemoryStore is an in-memory Store keyed by Ref.Identifier. Every save gets
// a fresh snapshot ID and a bumped ETag.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord[T]
	now     func() time.Time
}

type memoryRecord[T any] struct {
	snapshot T
	meta     Meta
	version  int
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{records: map[string]memoryRecord[T]{}, now: time.Now}
}

func (s *MemoryStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return zero, Meta{}, false, nil
	}
	return layering.Clone(record.snapshot), cloneMeta(record.meta), true, nil
}

// Save stores snapshot. A non-empty meta.ETag must match the stored record.
func (s *MemoryStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	previous, exists := s.records[key]
	if exists && meta.ETag != "" && meta.ETag != previous.meta.ETag {
		return Meta{}, ErrETagMismatch
	}
	version := previous.version + 1
	saved := cloneMeta(meta)
	saved.SnapshotID = uuid.NewString()
	saved.ETag = "v" + strconv.Itoa(version)
	saved.UpdatedAt = s.now().UTC()
	s.records[key] = memoryRecord[T]{snapshot: layering.Clone(snapshot), meta: saved, version: version}
	return cloneMeta(saved), nil
}

// Keys returns the stored identifiers.
func (s *MemoryStore[T]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	return keys
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
