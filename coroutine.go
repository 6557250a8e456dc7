// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package coroutine

import (
	"runtime"
	"sync/atomic"
)

// Coroutine is a suspendable execution context. Instances are created by
// [Start] and [StartFuture], and are not exposed directly; coroutine code
// interacts with the runtime through the package-level await primitives.
//
// A coroutine executes on a dedicated worker goroutine, but is driven by a
// host: the executor task that launched or resumed it. While the coroutine
// runs, its host blocks; when the coroutine suspends or completes, the host
// is released. Resumption submits a fresh host task to the coroutine's
// resume submitter, so a coroutine may continue on a different thread after
// every await. Exactly one thread observes the coroutine running at a time.
type Coroutine struct {
	state fastState

	// submitter schedules continuation tasks. Set at construction in Start,
	// and afterwards written only by the coroutine's own goroutine (in
	// SwitchTo), before the await that publishes the next resume callback,
	// which establishes the ordering for readers.
	submitter Executor

	worker *worker
}

const (
	opArmed uint32 = iota
	opFiring
	opFired
)

// awaitOp is the current-await slot for a single suspension: a one-shot
// cell resolved by the resume callback. Each await allocates a fresh op, so
// a stale resume from an earlier await can never touch a later one.
type awaitOp struct {
	c     *Coroutine
	state atomic.Uint32
}

// fire transitions the awaiting coroutine out of its suspension. If the
// coroutine has not parked yet, the suspension is elided and it continues on
// its current host; otherwise a continuation is submitted to the resume
// submitter.
func (op *awaitOp) fire() {
	c := op.c
	for {
		if c.state.TryTransition(stateSuspending, stateRunning) {
			// fast path: resumed before parking, no handoff
			return
		}
		if c.state.TryTransition(stateSuspended, stateRestarting) {
			c.submitter.Submit(c.step)
			return
		}
		// the coroutine is mid-transition; it will settle imminently
		runtime.Gosched()
	}
}

// Start launches body as a coroutine on executor. The coroutine runs to its
// first suspension point on one of the executor's threads; each resumption
// is submitted to the same executor (unless changed via [SwitchTo]).
//
// A panic in body is not recovered. Use [StartFuture] to surface failures
// through a future instead.
func Start(executor Executor, body func()) {
	if executor == nil {
		panic(`coroutine: nil executor`)
	}
	if body == nil {
		panic(`coroutine: nil body`)
	}
	c := &Coroutine{submitter: executor}
	executor.Submit(func() { c.launch(body) })
}

// StartFuture launches body as a coroutine on executor, returning a future
// carrying the body's result. A panic in body fails the future with a
// [PanicError].
func StartFuture[T any](executor Executor, body func() (T, error)) *Future[T] {
	f := NewPromise[T]()
	Start(executor, func() {
		defer func() {
			if r := recover(); r != nil {
				f.Fail(PanicError{Value: r})
			}
		}()
		f.Complete(body())
	})
	return f
}

// launch runs on the host thread: it acquires a worker, hands it the body,
// and blocks until the coroutine suspends or completes.
func (c *Coroutine) launch(body func()) {
	c.worker = defaultPool.acquire()
	c.state.Store(stateRunning)
	c.worker.tasks <- workerTask{c: c, body: body}
	<-c.worker.yield
}

// execute runs on the worker goroutine.
func (c *Coroutine) execute(body func()) {
	body()
	c.state.Store(stateDone)
	c.worker.yield <- struct{}{}
}

// step is a continuation task: it runs on the host thread, unparks the
// coroutine, and blocks until it suspends again or completes.
func (c *Coroutine) step() {
	c.worker.resume <- struct{}{}
	<-c.worker.yield
}

// Await suspends the calling coroutine until the one-shot resume callback
// passed to register is invoked, then returns the value it was invoked with.
// The resume callback may be called from any goroutine; calls after the
// first are no-ops.
//
// If resume fires before the coroutine parks (including synchronously,
// inside register), the suspension is elided and Await returns without a
// host handoff.
//
// Await panics with [ErrNotInsideCoroutine] when called outside a coroutine.
func Await[T any](register func(resume func(T))) T {
	c := current()
	if c == nil {
		panic(ErrNotInsideCoroutine)
	}
	if !c.state.TryTransition(stateRunning, stateSuspending) {
		panic(`coroutine: await on coroutine that is not running`)
	}

	op := &awaitOp{c: c}
	var value T
	register(func(v T) {
		if !op.state.CompareAndSwap(opArmed, opFiring) {
			return
		}
		value = v
		op.state.Store(opFired)
		op.fire()
	})

	if c.state.TryTransition(stateSuspending, stateSuspended) {
		c.worker.yield <- struct{}{}
		<-c.worker.resume
		c.state.Store(stateRunning)
	} else {
		// resume won the race; wait for the value to be published
		for op.state.Load() != opFired {
			runtime.Gosched()
		}
	}
	return value
}

// SwitchTo suspends the calling coroutine and resumes it on executor, which
// also becomes the coroutine's resume submitter for subsequent awaits.
//
// SwitchTo panics with [ErrNotInsideCoroutine] when called outside a
// coroutine.
func SwitchTo(executor Executor) {
	if executor == nil {
		panic(`coroutine: nil executor`)
	}
	c := current()
	if c == nil {
		panic(ErrNotInsideCoroutine)
	}
	c.submitter = executor
	c.state.Store(stateSuspended)
	// the continuation blocks handing the resume signal until we park
	executor.Submit(c.step)
	c.worker.yield <- struct{}{}
	<-c.worker.resume
	c.state.Store(stateRunning)
}
