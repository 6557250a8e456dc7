package coroutine

import (
	"sync/atomic"
)

// coroState represents the lifecycle state of a [Coroutine].
//
// State Machine:
//
//	statePrepared → stateRunning        [Start, on the host thread]
//	stateRunning → stateSuspending      [await entry]
//	stateSuspending → stateSuspended    [await parks; coroutine wins the race]
//	stateSuspending → stateRunning      [resume fires first; park elided]
//	stateSuspended → stateRestarting    [resume; continuation submitted]
//	stateRestarting → stateRunning      [continuation unparks the coroutine]
//	stateRunning → stateSuspended       [SwitchTo; continuation submitted]
//	stateSuspended → stateRunning       [SwitchTo's continuation unparks it]
//	stateRunning → stateDone            [body returned; terminal]
//
// Only stateRunning and stateRestarting execute on the coroutine's worker;
// stateSuspended is off-CPU and may migrate to a different host thread.
type coroState uint64

const (
	statePrepared coroState = iota
	stateRunning
	stateSuspending
	stateSuspended
	stateRestarting
	stateDone
)

// String returns a human-readable representation of the state.
func (s coroState) String() string {
	switch s {
	case statePrepared:
		return "Prepared"
	case stateRunning:
		return "Running"
	case stateSuspending:
		return "Suspending"
	case stateSuspended:
		return "Suspended"
	case stateRestarting:
		return "Restarting"
	case stateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding.
//
// Uses pure atomic CAS operations with no mutex. Cache-line padding prevents
// false sharing between the coroutine's worker and the resuming thread.
type fastState struct { // betteralign:ignore
	_ [64]byte      // Cache line padding (before value) //nolint:unused
	v atomic.Uint64 // State value
	_ [56]byte      // Pad to complete cache line (64 - 8 = 56) //nolint:unused
}

// Load returns the current state atomically.
func (s *fastState) Load() coroState {
	return coroState(s.v.Load())
}

// Store atomically stores a new state. Reserved for transitions that cannot
// race (the owning side setting Running after unpark, or Done).
func (s *fastState) Store(state coroState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *fastState) TryTransition(from, to coroState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// atomicTransform applies f in a CAS loop until it takes effect, returning
// the observed old value and the stored new value. If f maps a value to
// itself the store is skipped, and (old, old) is returned.
func atomicTransform(v *atomic.Int64, f func(old int64) int64) (old, updated int64) {
	for {
		old = v.Load()
		updated = f(old)
		if updated == old || v.CompareAndSwap(old, updated) {
			return
		}
	}
}
