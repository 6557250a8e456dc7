package coroutine

import (
	"errors"
	"fmt"
)

var (
	// ErrCanceled indicates that a future, channel, or scope was canceled,
	// either explicitly or via a parent primitive.
	ErrCanceled = errors.New(`coroutine: canceled`)

	// ErrTimeout indicates that an await with a timeout elapsed before the
	// awaited primitive resolved.
	ErrTimeout = errors.New(`coroutine: await timed out`)

	// ErrBroken indicates that a promise became unreachable without ever
	// being resolved. Callbacks registered on such a promise are failed with
	// this error rather than silently dropped.
	ErrBroken = errors.New(`coroutine: promise dropped without resolution`)

	// ErrClosed indicates a send on a closed channel, or a receive on a
	// closed channel whose buffered elements have been drained.
	ErrClosed = errors.New(`coroutine: channel closed`)

	// ErrNotInsideCoroutine indicates that an await primitive was called
	// outside of a coroutine. This is an unrecoverable programming error,
	// surfaced as a panic.
	ErrNotInsideCoroutine = errors.New(`coroutine: await called outside coroutine`)
)

// PanicError wraps a value recovered from a panicking coroutine body started
// via [StartFuture], surfacing it through the future's failure slot.
type PanicError struct {
	// Value is the recovered panic value.
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf(`coroutine: panic in coroutine body: %v`, e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] for error matching
// through the cause chain.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
