package coroutine

import (
	"iter"
)

// Receiver is the receive-side view of a [Channel]. It is satisfied by
// *Channel itself and by mapped receivers; all implementations share the
// lifecycle of the underlying channel.
type Receiver[T any] interface {
	// AwaitReceive takes the next element, suspending while empty.
	AwaitReceive() (T, error)
	// Poll takes the next element without suspending.
	Poll() (T, bool)
	// WhenReceive registers a one-shot receive callback.
	WhenReceive(cb func(value T, err error))
	// Seq iterates received elements, see Channel.Seq.
	Seq() iter.Seq[T]
	// IsClosed reports whether the underlying channel is closed.
	IsClosed() bool
	// IsCanceled reports whether the underlying channel is canceled.
	IsCanceled() bool
	// Cancel cancels the underlying channel.
	Cancel()
	// Finally registers a completion callback on the underlying channel.
	Finally(cb func())
}

var _ Receiver[int] = (*Channel[int])(nil)

// MapReceiver wraps r, transforming each received element with fn. The
// wrapper shares r's underlying channel and lifecycle; it does not own the
// channel exclusively, and canceling the wrapper cancels the channel.
func MapReceiver[T, U any](r Receiver[T], fn func(T) U) Receiver[U] {
	if r == nil {
		panic(`coroutine: nil receiver`)
	}
	if fn == nil {
		panic(`coroutine: nil transform`)
	}
	return &mappedReceiver[T, U]{r: r, fn: fn}
}

type mappedReceiver[T, U any] struct {
	r  Receiver[T]
	fn func(T) U
}

func (m *mappedReceiver[T, U]) AwaitReceive() (U, error) {
	value, err := m.r.AwaitReceive()
	if err != nil {
		var zero U
		return zero, err
	}
	return m.fn(value), nil
}

func (m *mappedReceiver[T, U]) Poll() (U, bool) {
	value, ok := m.r.Poll()
	if !ok {
		var zero U
		return zero, false
	}
	return m.fn(value), true
}

func (m *mappedReceiver[T, U]) WhenReceive(cb func(value U, err error)) {
	if cb == nil {
		return
	}
	m.r.WhenReceive(func(value T, err error) {
		if err != nil {
			var zero U
			cb(zero, err)
			return
		}
		cb(m.fn(value), nil)
	})
}

func (m *mappedReceiver[T, U]) Seq() iter.Seq[U] {
	return func(yield func(U) bool) {
		for value := range m.r.Seq() {
			if !yield(m.fn(value)) {
				return
			}
		}
	}
}

func (m *mappedReceiver[T, U]) IsClosed() bool   { return m.r.IsClosed() }
func (m *mappedReceiver[T, U]) IsCanceled() bool { return m.r.IsCanceled() }
func (m *mappedReceiver[T, U]) Cancel()          { m.r.Cancel() }
func (m *mappedReceiver[T, U]) Finally(cb func()) {
	m.r.Finally(cb)
}
