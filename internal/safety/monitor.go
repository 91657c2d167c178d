// Package safety provides a small CRITICAL-section occupancy monitor shared
// by the engine's unit tests and the end-to-end scenario tests, grounded in
// the retrieved transport library's testutils.CriticalSection helper.
package safety

import (
	"fmt"
	"sync"
)

// Monitor records CRITICAL-section entry/exit events per resource and
// asserts the safety invariant: at no instant may more than capacity ranks
// hold the same resource's critical section at once.
type Monitor struct {
	mu       sync.Mutex
	capacity map[string]int
	occupant map[string]map[int]bool
	maxSeen  map[string]int
}

// New builds a Monitor with the given per-resource capacities.
func New(capacity map[string]int) *Monitor {
	occ := make(map[string]map[int]bool, len(capacity))
	for r := range capacity {
		occ[r] = make(map[int]bool)
	}
	return &Monitor{
		capacity: capacity,
		occupant: occ,
		maxSeen:  make(map[string]int),
	}
}

// Enter records rank entering resource's critical section. It returns an
// error (rather than panicking) so callers can fail the enclosing test with
// a clear message instead of crashing the whole suite.
func (m *Monitor) Enter(resource string, rank int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.occupant[resource]
	if set == nil {
		set = make(map[int]bool)
		m.occupant[resource] = set
	}
	if set[rank] {
		return fmt.Errorf("safety: rank %d entered %s critical section twice without exiting", rank, resource)
	}
	set[rank] = true

	if len(set) > m.maxSeen[resource] {
		m.maxSeen[resource] = len(set)
	}
	if cap, ok := m.capacity[resource]; ok && len(set) > cap {
		return fmt.Errorf("safety: %d ranks simultaneously in %s critical section, capacity is %d", len(set), resource, cap)
	}
	return nil
}

// Exit records rank leaving resource's critical section.
func (m *Monitor) Exit(resource string, rank int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.occupant[resource]
	if set == nil || !set[rank] {
		return fmt.Errorf("safety: rank %d exited %s critical section without entering", rank, resource)
	}
	delete(set, rank)
	return nil
}

// MaxObserved returns the highest simultaneous occupancy seen for resource.
func (m *Monitor) MaxObserved(resource string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxSeen[resource]
}
