// Package coroutine provides stackful coroutines for Go, together with the
// synchronization machinery required to use them: awaitable futures and
// promises, buffered channels with suspend-on-full and suspend-on-empty
// semantics, and a scope abstraction for structured cancellation.
//
// # Architecture
//
// A coroutine is launched onto an [Executor] via [Start] or [StartFuture],
// and runs its body in a straight-line style. At an await point
// ([Await], [Future.Await], [Channel.AwaitSend], [Channel.AwaitReceive],
// [SwitchTo]) the coroutine suspends, releasing its host thread back to the
// executor; when the awaited callback later fires, from any goroutine, the
// coroutine is re-submitted to its executor for continuation.
//
// Each coroutine is backed by a dedicated worker goroutine, drawn from a
// bounded reusable pool. The Go runtime provides growable, relocatable
// per-goroutine stacks, so a suspended coroutine may safely migrate between
// host threads across await points, at arbitrary call depth, without any
// cooperation from the code it runs.
//
// # Await fast path
//
// If the callback registered by an await is invoked before the coroutine
// parks (including synchronously, during registration), the suspension is
// elided entirely: the caller continues on the same host thread, with no
// handoff. Awaiting an already-resolved [Future] therefore never suspends,
// and [Channel.Offer] on a non-full open channel never suspends.
//
// # Synchronization primitives
//
// [Future] is a single-assignment result cell with chained callbacks,
// usable both inside and outside coroutines. [Channel] is a bounded FIFO
// whose state is a single atomic word, combining the element/waiter count
// with the open/closed/canceled mode. [Scope] is a bag of [Cancellable]
// values with guaranteed cancellation on disposal or explicit cancel.
//
// # Execution Model
//
// Scheduling is cooperative: a coroutine runs on one host thread at a time,
// suspends only at explicit await points, and may resume on a different
// thread. Cancellation is cooperative as well; it resolves the awaited
// primitive with a terminal error that surfaces at the next await.
//
// # Usage
//
//	serial := coroutine.NewSerialExecutor()
//	future := coroutine.StartFuture(serial, func() (int, error) {
//	    v, err := request.Await() // suspends; serial is not blocked
//	    if err != nil {
//	        return 0, err
//	    }
//	    return v * 2, nil
//	})
//
//	future.WhenSuccess(func(v int) {
//	    fmt.Println("got", v)
//	})
package coroutine
