// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package coroutine

import (
	"iter"
	"runtime"
	"sync/atomic"
)

// Channel modes, packed into the high byte of the state word.
const (
	chModeOpen uint8 = iota
	chModeClosed
	chModeCanceled
)

// packState combines a signed 56-bit count with a mode byte into a single
// word, enabling single-CAS state transitions.
func packState(count int64, mode uint8) int64 {
	return int64(uint64(mode)<<56 | uint64(count)&(1<<56-1))
}

func unpackState(s int64) (count int64, mode uint8) {
	mode = uint8(uint64(s) >> 56)
	count = s << 8 >> 8 // arithmetic shift sign-extends
	return
}

func terminalError(mode uint8) error {
	if mode == chModeCanceled {
		return ErrCanceled
	}
	return ErrClosed
}

// sendItem is a queued element, paired with the resume callback of its
// sender if the sender suspended waiting for buffer space.
type sendItem[T any] struct {
	value  T
	resume func(error)
}

// Channel is a bounded FIFO with suspend-on-full sending and
// suspend-on-empty receiving, plus close and cancel lifecycles.
//
// The channel state is a single atomic word combining a mode
// (open/closed/canceled) with a signed count: positive counts are queued
// elements waiting to be received, negative counts are receivers waiting for
// elements, zero is empty with no waiters. Every operation decides its fate
// with one CAS on this word; the element and callback queues underneath are
// lock-free FIFOs.
//
// Send order is preserved per sender, and the global receive order equals
// the interleaved send order.
//
// Instances must be initialized using the NewChannel factory.
type Channel[T any] struct {
	state atomic.Int64

	// maxBuffer is the buffer capacity: 0 makes every send suspend until a
	// receiver arrives (rendezvous), negative is unbounded.
	maxBuffer int64

	sendq *queue[*sendItem[T]]
	recvq *queue[func(T, error)]

	// completion fires exactly once, when the channel reaches a terminal
	// state with the buffer drained; the argument is the terminal cause.
	completion callbackStack[error]
	// canceled fires exactly once, on cancellation only.
	canceled callbackStack[struct{}]
}

// NewChannel initializes a new Channel with the given buffer capacity.
// A capacity of 0 yields rendezvous semantics (every send suspends until a
// matching receive); a negative capacity is unbounded.
//
// A Channel that becomes unreachable while still open cancels itself, so
// callbacks registered on it are never silently lost.
func NewChannel[T any](maxBufferSize int) *Channel[T] {
	ch := &Channel[T]{
		maxBuffer: int64(maxBufferSize),
		sendq:     newQueue[*sendItem[T]](),
		recvq:     newQueue[func(T, error)](),
	}
	runtime.SetFinalizer(ch, (*Channel[T]).finalize)
	return ch
}

func (ch *Channel[T]) finalize() {
	if _, mode := unpackState(ch.state.Load()); mode != chModeOpen {
		return
	}
	logger().Debug().Log(`open channel became unreachable, canceling`)
	ch.Cancel()
}

// MaxBufferSize returns the configured buffer capacity; negative is
// unbounded.
func (ch *Channel[T]) MaxBufferSize() int {
	return int(ch.maxBuffer)
}

// Len returns the number of queued elements (buffered plus any held by
// suspended senders); zero if the channel is empty or has waiting receivers.
func (ch *Channel[T]) Len() int {
	if count, _ := unpackState(ch.state.Load()); count > 0 {
		return int(count)
	}
	return 0
}

// IsClosed reports whether the channel has been closed.
func (ch *Channel[T]) IsClosed() bool {
	_, mode := unpackState(ch.state.Load())
	return mode == chModeClosed
}

// IsCanceled reports whether the channel has been canceled.
func (ch *Channel[T]) IsCanceled() bool {
	_, mode := unpackState(ch.state.Load())
	return mode == chModeCanceled
}

// AwaitSend delivers value to the channel: handing it directly to a waiting
// receiver, buffering it if capacity allows, or suspending the calling
// coroutine until space frees up. Returns [ErrClosed] or [ErrCanceled] if
// the channel reached a terminal state. Panics with [ErrNotInsideCoroutine]
// outside a coroutine.
func (ch *Channel[T]) AwaitSend(value T) error {
	if !IsInsideCoroutine() {
		panic(ErrNotInsideCoroutine)
	}
	old, _ := atomicTransform(&ch.state, func(s int64) int64 {
		count, mode := unpackState(s)
		if mode != chModeOpen {
			return s
		}
		return packState(count+1, chModeOpen)
	})
	count, mode := unpackState(old)
	switch {
	case mode != chModeOpen:
		return terminalError(mode)
	case count < 0:
		// hand off to the longest-waiting receiver
		receive := ch.recvq.popWait()
		receive(value, nil)
		return nil
	case ch.maxBuffer < 0 || count < ch.maxBuffer:
		ch.sendq.push(&sendItem[T]{value: value})
		return nil
	default:
		return Await[error](func(resume func(error)) {
			ch.sendq.push(&sendItem[T]{value: value, resume: resume})
			// a Close between the count increment and the push did not see
			// this item while walking the send queue
			if _, mode := unpackState(ch.state.Load()); mode == chModeClosed {
				resume(ErrClosed)
			}
		})
	}
}

// Offer delivers value without suspending, returning true iff it was
// accepted (a buffer slot was available or a receiver was waiting). Returns
// false when the channel is full, closed, or canceled.
func (ch *Channel[T]) Offer(value T) bool {
	old, updated := atomicTransform(&ch.state, func(s int64) int64 {
		count, mode := unpackState(s)
		if mode != chModeOpen || (count >= 0 && ch.maxBuffer >= 0 && count >= ch.maxBuffer) {
			return s
		}
		return packState(count+1, chModeOpen)
	})
	if updated == old {
		return false
	}
	if count, _ := unpackState(old); count < 0 {
		receive := ch.recvq.popWait()
		receive(value, nil)
	} else {
		ch.sendq.push(&sendItem[T]{value: value})
	}
	return true
}

// SendFuture forwards f's success value into the channel, via the
// equivalent of [Channel.Offer], once f resolves. The value is dropped if f
// fails, or if the channel does not accept it; drops are logged at warning
// level through the package logger.
func (ch *Channel[T]) SendFuture(f *Future[T]) {
	if f == nil {
		panic(`coroutine: nil future`)
	}
	f.WhenComplete(func(value T, err error) {
		if err != nil {
			logger().Warning().Err(err).Log(`channel send dropped, source future failed`)
			return
		}
		if !ch.Offer(value) {
			logger().Warning().Log(`channel send dropped, not accepted`)
		}
	})
}

// AwaitReceive takes the longest-queued element, suspending the calling
// coroutine while the channel is empty. After close, buffered elements
// remain receivable; once drained, AwaitReceive returns [ErrClosed]. After
// cancel it returns [ErrCanceled]. Panics with [ErrNotInsideCoroutine]
// outside a coroutine.
func (ch *Channel[T]) AwaitReceive() (T, error) {
	if !IsInsideCoroutine() {
		panic(ErrNotInsideCoroutine)
	}
	var zero T
	old, _ := atomicTransform(&ch.state, func(s int64) int64 {
		count, mode := unpackState(s)
		switch {
		case mode == chModeCanceled, mode == chModeClosed && count <= 0:
			return s
		default:
			return packState(count-1, mode)
		}
	})
	count, mode := unpackState(old)
	switch {
	case mode == chModeCanceled:
		return zero, ErrCanceled
	case count > 0:
		return ch.take(count, mode), nil
	case mode == chModeClosed:
		return zero, ErrClosed
	default: // open, empty: suspend
		r := Await[futureResult[T]](func(resume func(futureResult[T])) {
			ch.recvq.push(func(value T, err error) {
				resume(futureResult[T]{value: value, err: err})
			})
		})
		return r.value, r.err
	}
}

// take pops the next queued element after a successful count decrement from
// count to count-1, resuming its sender if one suspended, and firing
// completion if this drained a closed channel.
func (ch *Channel[T]) take(count int64, mode uint8) T {
	item := ch.sendq.popWait()
	if item.resume != nil {
		item.resume(nil)
	}
	if mode == chModeClosed && count == 1 {
		ch.completion.close(ErrClosed)
	}
	return item.value
}

// Poll takes a queued element without suspending, returning false when the
// channel is empty or canceled. Buffered elements of a closed channel are
// still returned.
func (ch *Channel[T]) Poll() (T, bool) {
	old, updated := atomicTransform(&ch.state, func(s int64) int64 {
		count, mode := unpackState(s)
		if mode == chModeCanceled || count <= 0 {
			return s
		}
		return packState(count-1, mode)
	})
	if updated == old {
		var zero T
		return zero, false
	}
	count, mode := unpackState(old)
	return ch.take(count, mode), true
}

// WhenReceive registers a one-shot receive callback: it fires with the next
// available element, or with the terminal error if the channel reaches a
// terminal state first. If an element (or terminal state) is already
// available the callback fires synchronously, on the registering goroutine.
func (ch *Channel[T]) WhenReceive(cb func(value T, err error)) {
	if cb == nil {
		return
	}
	var zero T
	old, _ := atomicTransform(&ch.state, func(s int64) int64 {
		count, mode := unpackState(s)
		switch {
		case mode == chModeCanceled, mode == chModeClosed && count <= 0:
			return s
		default:
			return packState(count-1, mode)
		}
	})
	count, mode := unpackState(old)
	switch {
	case mode == chModeCanceled:
		cb(zero, ErrCanceled)
	case count > 0:
		cb(ch.take(count, mode), nil)
	case mode == chModeClosed:
		cb(zero, ErrClosed)
	default:
		ch.recvq.push(cb)
	}
}

// Close transitions the channel to closed. Already-queued elements remain
// receivable; waiting receivers are resumed with [ErrClosed]; suspended
// senders are resumed with [ErrClosed], their elements left deliverable.
// Returns true only on the first successful close; false if the channel was
// already terminal.
func (ch *Channel[T]) Close() bool {
	var zero T
	old, _ := atomicTransform(&ch.state, func(s int64) int64 {
		count, mode := unpackState(s)
		if mode != chModeOpen {
			return s
		}
		return packState(max(count, 0), chModeClosed)
	})
	count, mode := unpackState(old)
	if mode != chModeOpen {
		return false
	}
	for i := count; i < 0; i++ {
		receive := ch.recvq.popWait()
		receive(zero, ErrClosed)
	}
	// resume suspended senders without consuming their elements; resume
	// callbacks are one-shot, so racing a concurrent receive is benign
	ch.sendq.walk(func(item *sendItem[T]) {
		if item != nil && item.resume != nil {
			item.resume(ErrClosed)
		}
	})
	if count <= 0 {
		ch.completion.close(ErrClosed)
	}
	logger().Debug().Int64(`buffered`, max(count, 0)).Log(`channel closed`)
	return true
}

// Cancel transitions the channel to canceled, dropping all queued elements
// and resuming every waiting sender and receiver with [ErrCanceled].
// Idempotent. Cancel is legal on a closed channel (dropping its remaining
// buffer).
func (ch *Channel[T]) Cancel() {
	var zero T
	old, _ := atomicTransform(&ch.state, func(s int64) int64 {
		if _, mode := unpackState(s); mode == chModeCanceled {
			return s
		}
		return packState(0, chModeCanceled)
	})
	count, mode := unpackState(old)
	if mode == chModeCanceled {
		return
	}
	for i := count; i < 0; i++ {
		receive := ch.recvq.popWait()
		receive(zero, ErrCanceled)
	}
	for i := int64(0); i < count; i++ {
		item := ch.sendq.popWait()
		if item.resume != nil {
			item.resume(ErrCanceled)
		}
	}
	ch.canceled.close(struct{}{})
	ch.completion.close(ErrCanceled)
	logger().Debug().Int64(`dropped`, max(count, 0)).Log(`channel canceled`)
}

// WhenComplete registers a callback fired exactly once, when the channel
// reaches a terminal state with its buffer drained. If that has already
// happened the callback fires synchronously, on the registering goroutine.
func (ch *Channel[T]) WhenComplete(cb func()) {
	if cb == nil {
		return
	}
	ch.completion.add(func(error) { cb() })
}

// WhenCanceled registers a callback fired exactly once, on cancellation
// only. Closing the channel does not fire it; a closed channel that is later
// canceled does.
func (ch *Channel[T]) WhenCanceled(cb func()) {
	if cb == nil {
		return
	}
	ch.canceled.add(func(struct{}) { cb() })
}

// Finally is the [Cancellable] completion hook, equivalent to
// [Channel.WhenComplete].
func (ch *Channel[T]) Finally(cb func()) {
	ch.WhenComplete(cb)
}

// Seq returns an iterator over received elements. Inside a coroutine it
// awaits each element, suspending while the channel is empty, and
// terminates once the channel is terminal and drained. Outside a coroutine
// it polls, terminating at the first empty poll.
func (ch *Channel[T]) Seq() iter.Seq[T] {
	return func(yield func(T) bool) {
		if IsInsideCoroutine() {
			for {
				value, err := ch.AwaitReceive()
				if err != nil || !yield(value) {
					return
				}
			}
		}
		for {
			value, ok := ch.Poll()
			if !ok || !yield(value) {
				return
			}
		}
	}
}
