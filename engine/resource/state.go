package resource

// State is the lifecycle stage of a GPU resource owned by a manager.
//
// Managers never touch the GPU. Creating a resource queues a load, destroying it queues an
// unload, and both queues are drained into the next main-target snapshot.
type State int

const (
	// StateRequested exists on the CPU side but has not been queued yet.
	StateRequested State = iota
	// StatePendingLoad is queued and waiting for the next main-target snapshot.
	StatePendingLoad
	// StateResident has had its load command handed to the renderer.
	StateResident
	// StatePendingUnload was destroyed by its owner and waits for its unload to be queued.
	StatePendingUnload
	// StateDestroyed has had its unload command handed to the renderer. The handle is dead.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StatePendingLoad:
		return "pending-load"
	case StateResident:
		return "resident"
	case StatePendingUnload:
		return "pending-unload"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Loaded advances a resource whose load was just queued, unless it was destroyed before the
// drain. A destroyed resource stays pending unload and is released in the same snapshot.
//
// Parameters:
//   - s: the current state
//
// Returns:
//   - State: the state after the load was handed over
func (s State) Loaded() State {
	if s == StatePendingLoad {
		return StateResident
	}
	return s
}
