package coroutine

import (
	"runtime"
	"sync"
	"sync/atomic"
	"weak"
)

// Cancellable is any entity with an idempotent cancel and a one-shot
// completion hook. [Future], [Channel], [Receiver], and [Scope] all satisfy
// it.
type Cancellable interface {
	// Cancel requests cancellation. Idempotent.
	Cancel()
	// Finally registers a callback fired exactly once, on completion by any
	// path (cancellation, natural completion, or finalization).
	Finally(cb func())
}

// Scope is a bag of cancellables with guaranteed cancellation on explicit
// cancel or finalization. Adding to a canceled scope cancels the added item
// immediately. For any interleaving of concurrent Add and Cancel, every
// added item is canceled exactly once (relying on the members' own Cancel
// idempotence for items that also complete naturally).
//
// A Scope is itself a [Cancellable], so child scopes may be added to a
// parent, propagating cancellation parent to child.
//
// Instances must be initialized using the NewScope factory.
type Scope struct {
	mu      sync.Mutex
	members map[uint64]Cancellable
	nextID  uint64

	canceled atomic.Bool

	completion callbackStack[struct{}]
}

// NewScope initializes a new Scope. A Scope that becomes unreachable is
// canceled, so its members are never silently leaked.
func NewScope() *Scope {
	s := &Scope{members: make(map[uint64]Cancellable)}
	runtime.SetFinalizer(s, (*Scope).Cancel)
	return s
}

// Add registers c for cancellation with the scope. If the scope is already
// canceled, c is canceled immediately and not retained. Members are
// released from the scope when they complete, whichever way.
func (s *Scope) Add(c Cancellable) {
	if c == nil {
		panic(`coroutine: nil cancellable`)
	}
	s.mu.Lock()
	if s.canceled.Load() {
		s.mu.Unlock()
		c.Cancel()
		return
	}
	s.nextID++
	id := s.nextID
	s.members[id] = c
	s.mu.Unlock()

	// release the member once it completes; the back-reference is weak so
	// pending members never pin the scope (which would defeat its
	// finalization-time cancel)
	ref := weak.Make(s)
	c.Finally(func() {
		if p := ref.Value(); p != nil {
			p.remove(id)
		}
	})
}

func (s *Scope) remove(id uint64) {
	s.mu.Lock()
	delete(s.members, id)
	s.mu.Unlock()
}

// Cancel cancels every member, exactly once each, then fires completion
// callbacks. Idempotent; concurrent Add calls either land in the drained
// set or observe the canceled state and cancel their item directly.
func (s *Scope) Cancel() {
	if s.canceled.Swap(true) {
		return
	}
	s.mu.Lock()
	members := s.members
	s.members = nil
	s.mu.Unlock()

	for _, c := range members {
		c.Cancel()
	}
	logger().Debug().Int(`members`, len(members)).Log(`scope canceled`)
	s.completion.close(struct{}{})
}

// IsCanceled reports whether the scope has been canceled.
func (s *Scope) IsCanceled() bool {
	return s.canceled.Load()
}

// WhenComplete registers a callback fired exactly once, after cancellation
// has drained the member set. If the scope is already canceled the callback
// fires synchronously, on the registering goroutine.
func (s *Scope) WhenComplete(cb func()) {
	if cb == nil {
		return
	}
	s.completion.add(func(struct{}) { cb() })
}

// Finally is the [Cancellable] completion hook, equivalent to
// [Scope.WhenComplete].
func (s *Scope) Finally(cb func()) {
	s.WhenComplete(cb)
}
