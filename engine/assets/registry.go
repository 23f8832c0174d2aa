// Package assets implements the four subsystems spec.md §4 describes:
// Registry, Loader, Manager, and the Hot-Reload Coordinator.
package assets

import (
	"fmt"
	"sync"
	"time"

	"github.com/Kinubi/zephyr-assets/engine/core"
)

// Registry interns paths into AssetIds and owns the single source of
// truth for lifecycle state and the dependency graph. One coarse
// sync.RWMutex guards every field; critical sections are short field
// reads/writes, never I/O or decode work, following the teacher's
// resource-system locking discipline (one lock, no nested locks).
//
// TryBeginLoading is the serialization point spec.md §4.1 describes as
// "an atomic compare-and-swap from Unloaded to Loading": a mutex-guarded
// state check is the idiomatic Go equivalent of that compare-and-swap —
// the critical section between checking and setting state IS the atomic
// boundary, so a dedicated atomic.Value or CAS primitive would add
// nothing a short lock doesn't already give.
type Registry struct {
	mu sync.RWMutex

	byPath map[string]AssetId
	byID   map[AssetId]*AssetMetadata

	nextID AssetId
}

func NewRegistry() *Registry {
	return &Registry{
		byPath: make(map[string]AssetId),
		byID:   make(map[AssetId]*AssetMetadata),
	}
}

// Intern returns the AssetId for path, creating one in state Unloaded
// if this is the first time path has been seen. Intern is idempotent:
// calling it twice with the same path and kind returns the same id.
// Re-interning a known path under a different kind is a programmer
// error and returns ErrStateViolation (spec.md §8: "an asset's kind is
// fixed at first observation").
func (r *Registry) Intern(path string, kind AssetKind) (AssetId, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPath[path]; ok {
		meta := r.byID[id]
		if meta.Kind != kind {
			return InvalidAssetID, fmt.Errorf("registry: %s already interned as %s, requested as %s: %w",
				path, meta.Kind, kind, core.ErrStateViolation)
		}
		return id, nil
	}

	id := r.nextID
	r.nextID++

	r.byPath[path] = id
	r.byID[id] = &AssetMetadata{
		ID:    id,
		Kind:  kind,
		Path:  path,
		State: StateUnloaded,
	}
	return id, nil
}

// snapshot copies a metadata record under lock. Returned by value so
// callers can never mutate Registry state by holding on to the pointer.
func snapshot(m *AssetMetadata) AssetMetadata {
	out := *m
	if len(m.Dependencies) > 0 {
		out.Dependencies = append([]AssetId(nil), m.Dependencies...)
	}
	if len(m.Dependents) > 0 {
		out.Dependents = append([]AssetId(nil), m.Dependents...)
	}
	return out
}

func (r *Registry) LookupByID(id AssetId) (AssetMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return AssetMetadata{}, false
	}
	return snapshot(m), true
}

func (r *Registry) LookupByPath(path string) (AssetMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[path]
	if !ok {
		return AssetMetadata{}, false
	}
	return snapshot(r.byID[id]), true
}

// TryBeginLoading transitions id from Unloaded (or Failed, for a retry)
// to Loading and returns true, or returns false if another caller has
// already claimed the transition. Exactly one caller ever observes
// true for a given load attempt (spec.md §8, "duplicate submission
// dedup").
func (r *Registry) TryBeginLoading(id AssetId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return false
	}
	if m.State != StateUnloaded && m.State != StateFailed {
		return false
	}
	m.State = StateLoading
	m.LastError = ""
	return true
}

// MarkStaged records that CPU-side bytes are ready and transitions
// Loading -> Staged. Calling it from any other state is a programmer
// error.
func (r *Registry) MarkStaged(id AssetId, byteSize uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("registry: MarkStaged: %w", core.ErrNotFound)
	}
	if m.State != StateLoading {
		core.LogError("registry: MarkStaged called from state %s for %s", m.State, m.Path)
		return fmt.Errorf("registry: %s: %s -> staged: %w", m.Path, m.State, core.ErrStateViolation)
	}
	m.State = StateStaged
	m.ByteSize = byteSize
	return nil
}

// MarkLoaded transitions Staged -> Loaded once the GPU worker has built
// the device resource.
func (r *Registry) MarkLoaded(id AssetId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("registry: MarkLoaded: %w", core.ErrNotFound)
	}
	if m.State != StateStaged {
		core.LogError("registry: MarkLoaded called from state %s for %s", m.State, m.Path)
		return fmt.Errorf("registry: %s: %s -> loaded: %w", m.Path, m.State, core.ErrStateViolation)
	}
	m.State = StateLoaded
	m.LastLoaded = time.Now()
	return nil
}

// MarkFailed transitions Loading or Staged to Failed, recording the
// reason for later inspection.
func (r *Registry) MarkFailed(id AssetId, reason error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("registry: MarkFailed: %w", core.ErrNotFound)
	}
	if m.State != StateLoading && m.State != StateStaged {
		return fmt.Errorf("registry: %s: %s -> failed: %w", m.Path, m.State, core.ErrStateViolation)
	}
	m.State = StateFailed
	if reason != nil {
		m.LastError = reason.Error()
	}
	return nil
}

// ForceUnload transitions Loaded back to Unloaded. It is the only path
// back to Unloaded, used by hot-reload invalidation to force a resident
// asset through a fresh load cycle.
func (r *Registry) ForceUnload(id AssetId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("registry: ForceUnload: %w", core.ErrNotFound)
	}
	if m.State != StateLoaded {
		return fmt.Errorf("registry: %s: %s -> unloaded: %w", m.Path, m.State, core.ErrStateViolation)
	}
	m.State = StateUnloaded
	return nil
}

// AddDependency records that dependent depends on dependency, adding
// reciprocal edges to both records (spec.md §3: "the graph is always
// kept symmetric; every dependency edge has a matching dependent edge").
func (r *Registry) AddDependency(dependent, dependency AssetId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[dependent]
	if !ok {
		return fmt.Errorf("registry: AddDependency: dependent: %w", core.ErrNotFound)
	}
	dep, ok := r.byID[dependency]
	if !ok {
		return fmt.Errorf("registry: AddDependency: dependency: %w", core.ErrNotFound)
	}

	if !containsID(d.Dependencies, dependency) {
		d.Dependencies = append(d.Dependencies, dependency)
	}
	if !containsID(dep.Dependents, dependent) {
		dep.Dependents = append(dep.Dependents, dependent)
	}
	return nil
}

// RemoveDependency removes the reciprocal edges added by AddDependency.
func (r *Registry) RemoveDependency(dependent, dependency AssetId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[dependent]
	if !ok {
		return fmt.Errorf("registry: RemoveDependency: dependent: %w", core.ErrNotFound)
	}
	dep, ok := r.byID[dependency]
	if !ok {
		return fmt.Errorf("registry: RemoveDependency: dependency: %w", core.ErrNotFound)
	}

	d.Dependencies = removeID(d.Dependencies, dependency)
	dep.Dependents = removeID(dep.Dependents, dependent)
	return nil
}

// Incref increments the reference count used to decide whether an
// unreferenced Loaded asset is eligible for eviction. The Registry
// itself never evicts; it only tracks the count for whatever eviction
// policy the Manager chooses to apply.
func (r *Registry) Incref(id AssetId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("registry: Incref: %w", core.ErrNotFound)
	}
	m.RefCount++
	return nil
}

// Decref decrements the reference count and reports whether it reached
// zero (spec.md §4.1: "decref(id) -> reached_zero: bool"), the signal a
// caller uses to decide an asset is now eligible for unload. Decref below
// zero is a programmer error, logged and otherwise ignored rather than
// panicking on a rendering-path call.
func (r *Registry) Decref(id AssetId) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return false, fmt.Errorf("registry: Decref: %w", core.ErrNotFound)
	}
	if m.RefCount == 0 {
		core.LogError("registry: Decref underflow for %s", m.Path)
		return true, nil
	}
	m.RefCount--
	return m.RefCount == 0, nil
}

func containsID(list []AssetId, id AssetId) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(list []AssetId, id AssetId) []AssetId {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
