package resource

import "fmt"

// Handle is a stable, generation-checked reference to a slot in an Arena.
// Consumers hold handles rather than owning the resource, so a handle to a freed slot
// can be detected instead of dereferencing stale memory. The zero Handle is never valid.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether the handle is the zero (invalid) handle.
func (h Handle) IsZero() bool {
	return h.Generation == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("#%d.%d", h.Index, h.Generation)
}

type slot[T any] struct {
	value      *T
	generation uint32
	live       bool
}

// Arena is a slab of resources indexed by Handle. Freed slots are recycled with a bumped
// generation so that handles issued for the previous occupant no longer resolve.
// Arena is not safe for concurrent use; owners guard it with their own mutex.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// NewArena creates an empty Arena with room for capacity resources before growing.
//
// Parameters:
//   - capacity: the initial slot capacity
//
// Returns:
//   - *Arena[T]: the new arena
func NewArena[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		slots: make([]slot[T], 0, capacity),
	}
}

// Insert stores v in a free slot and returns its handle.
// The pointer is owned by the arena and remains stable until Remove.
//
// Parameters:
//   - v: the resource to store
//
// Returns:
//   - Handle: the handle identifying the slot
func (a *Arena[T]) Insert(v *T) Handle {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}

	s := &a.slots[index]
	s.generation++
	s.value = v
	s.live = true
	a.live++

	return Handle{Index: index, Generation: s.generation}
}

// Get resolves a handle to its resource.
//
// Parameters:
//   - h: the handle to resolve
//
// Returns:
//   - *T: the resource, or nil if the handle is stale or was never issued
//   - bool: true if the handle resolved
func (a *Arena[T]) Get(h Handle) (*T, bool) {
	if h.IsZero() || int(h.Index) >= len(a.slots) {
		return nil, false
	}
	s := a.slots[h.Index]
	if !s.live || s.generation != h.Generation {
		return nil, false
	}
	return s.value, true
}

// Remove releases the slot referenced by h and returns the resource that occupied it.
// The slot is recycled for later inserts under a new generation.
//
// Parameters:
//   - h: the handle to remove
//
// Returns:
//   - *T: the removed resource, or nil if the handle did not resolve
//   - bool: true if a resource was removed
func (a *Arena[T]) Remove(h Handle) (*T, bool) {
	v, ok := a.Get(h)
	if !ok {
		return nil, false
	}
	s := &a.slots[h.Index]
	s.value = nil
	s.live = false
	a.free = append(a.free, h.Index)
	a.live--
	return v, true
}

// Len returns the number of live resources in the arena.
func (a *Arena[T]) Len() int {
	return a.live
}

// Each calls fn for every live resource in slot order.
//
// Parameters:
//   - fn: callback receiving each live handle and resource
func (a *Arena[T]) Each(fn func(Handle, *T)) {
	for i, s := range a.slots {
		if s.live {
			fn(Handle{Index: uint32(i), Generation: s.generation}, s.value)
		}
	}
}
