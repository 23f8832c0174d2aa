package core

import (
	"fmt"
	"sync"
)

// SlotAllocator hands out dense, reusable integer slot indices for a
// per-kind resident array. It mirrors the free-spot scan the engine has
// always used for handle tables, generified and made safe to call from
// any worker thread: a slot found free is reused in place; otherwise the
// backing array grows by one.
type SlotAllocator[T any] struct {
	mu        sync.Mutex
	occupied  []bool
	taken     []T
	zero      T
	nextFresh int
}

// NewSlotAllocator creates an allocator with room for capacityHint slots
// up front (0 is fine; it simply grows on first use).
func NewSlotAllocator[T any](capacityHint int) *SlotAllocator[T] {
	return &SlotAllocator[T]{
		occupied: make([]bool, 0, capacityHint),
		taken:    make([]T, 0, capacityHint),
	}
}

// Acquire finds the first free slot and marks it occupied, or appends a
// new one if none is free. It returns the slot index.
func (a *SlotAllocator[T]) Acquire(value T) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, occ := range a.occupied {
		if !occ {
			a.occupied[i] = true
			a.taken[i] = value
			return i
		}
	}
	a.occupied = append(a.occupied, true)
	a.taken = append(a.taken, value)
	return len(a.taken) - 1
}

// Set overwrites the value stored at an already-acquired slot, used for
// the hot-reload replace-in-place path.
func (a *SlotAllocator[T]) Set(slot int, value T) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slot < 0 || slot >= len(a.taken) || !a.occupied[slot] {
		return fmt.Errorf("core: slot %d is not occupied", slot)
	}
	a.taken[slot] = value
	return nil
}

// Get returns the value at slot and whether it is currently occupied.
func (a *SlotAllocator[T]) Get(slot int) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slot < 0 || slot >= len(a.taken) || !a.occupied[slot] {
		return a.zero, false
	}
	return a.taken[slot], true
}

// Len returns the current backing-array length (not the occupied count).
func (a *SlotAllocator[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.taken)
}

// All returns a copy of the full backing array, occupied or not, so that
// callers needing dense, index-stable iteration (e.g. descriptor arrays
// where slot 0 is reserved) don't skip unoccupied entries.
func (a *SlotAllocator[T]) All() []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]T, len(a.taken))
	copy(out, a.taken)
	return out
}
