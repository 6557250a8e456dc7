package coroutine

import (
	"runtime"
	"sync"
)

// current-coroutine tracking, keyed by goroutine id.
//
// The id is parsed from the runtime.Stack header ("goroutine N [...]").
// There is no supported API for goroutine-local state; this is the same
// technique used by goroutine-id libraries, and is stable across Go
// releases. The map is only ever written by a coroutine's own worker
// goroutine, around the body's execution.
var currentCoroutines sync.Map // goroutine id (uint64) -> *Coroutine

func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	// "goroutine 123 [running]:"
	b = b[len("goroutine "):]
	var id uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// current returns the coroutine running on the calling goroutine, or nil.
func current() *Coroutine {
	if v, ok := currentCoroutines.Load(goroutineID()); ok {
		return v.(*Coroutine)
	}
	return nil
}

// IsInsideCoroutine reports whether the calling goroutine is executing a
// coroutine body. Await primitives panic with [ErrNotInsideCoroutine] when
// this is false.
func IsInsideCoroutine() bool {
	return current() != nil
}
