package assets

import (
	"sync"

	"github.com/Kinubi/zephyr-assets/engine/core"
)

// slotTable pairs a core.SlotAllocator with the AssetId -> slot index
// map the Manager needs (spec.md §3, "Slot tables"). install handles
// both first-install (fresh slot) and replace-in-place (hot reload,
// fallback-to-real upgrade) uniformly, which is the property dependents
// rely on to see updates without rewiring.
type slotTable[T any] struct {
	mu       sync.Mutex
	alloc    *core.SlotAllocator[T]
	idToSlot map[AssetId]int
}

func newSlotTable[T any](capacityHint int) *slotTable[T] {
	return &slotTable[T]{
		alloc:    core.NewSlotAllocator[T](capacityHint),
		idToSlot: make(map[AssetId]int),
	}
}

// install returns the slot index the value now occupies.
func (s *slotTable[T]) install(id AssetId, value T) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot, ok := s.idToSlot[id]; ok {
		s.alloc.Set(slot, value)
		return slot
	}
	slot := s.alloc.Acquire(value)
	s.idToSlot[id] = slot
	return slot
}

func (s *slotTable[T]) get(id AssetId) (T, bool) {
	s.mu.Lock()
	slot, ok := s.idToSlot[id]
	s.mu.Unlock()
	if !ok {
		var zero T
		return zero, false
	}
	return s.alloc.Get(slot)
}

func (s *slotTable[T]) slotOf(id AssetId) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.idToSlot[id]
	return slot, ok
}

// all returns the dense backing array including unoccupied entries, so
// slot 0's reserved white-pixel convention (spec.md §4.5) survives the
// snapshot.
func (s *slotTable[T]) all() []T {
	return s.alloc.All()
}

func (s *slotTable[T]) len() int {
	return s.alloc.Len()
}
