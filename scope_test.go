package coroutine

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testCancellable records cancellations and supports natural completion.
type testCancellable struct {
	cancels    atomic.Int32
	completion callbackStack[struct{}]
}

func (c *testCancellable) Cancel() {
	if c.cancels.Add(1) == 1 {
		c.completion.close(struct{}{})
	}
}

func (c *testCancellable) Finally(cb func()) {
	c.completion.add(func(struct{}) { cb() })
}

// complete simulates natural completion, without cancellation.
func (c *testCancellable) complete() {
	c.completion.close(struct{}{})
}

func TestScope_cancelCancelsMembers(t *testing.T) {
	s := NewScope()
	items := make([]*testCancellable, 10)
	for i := range items {
		items[i] = &testCancellable{}
		s.Add(items[i])
	}

	var completed atomic.Int32
	s.WhenComplete(func() { completed.Add(1) })

	require.False(t, s.IsCanceled())
	s.Cancel()
	require.True(t, s.IsCanceled())

	for _, c := range items {
		require.Equal(t, int32(1), c.cancels.Load())
	}
	require.Equal(t, int32(1), completed.Load())

	// idempotent, and late callbacks fire inline
	s.Cancel()
	s.WhenComplete(func() { completed.Add(1) })
	require.Equal(t, int32(2), completed.Load())
}

func TestScope_addAfterCancelCancelsImmediately(t *testing.T) {
	s := NewScope()
	s.Cancel()
	c := &testCancellable{}
	s.Add(c)
	require.Equal(t, int32(1), c.cancels.Load())
}

func TestScope_completedMembersAreReleased(t *testing.T) {
	s := NewScope()
	done := &testCancellable{}
	s.Add(done)
	done.complete()

	s.Cancel()
	// completed naturally before the cancel: never canceled by the scope
	require.Zero(t, done.cancels.Load())
}

func TestScope_childScope(t *testing.T) {
	parent := NewScope()
	child := NewScope()
	parent.Add(child)

	c := &testCancellable{}
	child.Add(c)

	parent.Cancel()
	require.True(t, child.IsCanceled())
	require.Equal(t, int32(1), c.cancels.Load())
}

func TestScope_concurrentAddAndCancel(t *testing.T) {
	const workers = 8
	const perWorker = 10_000

	s := NewScope()
	items := make([][]*testCancellable, workers)
	var wg sync.WaitGroup
	wg.Add(workers + 1)

	for w := 0; w < workers; w++ {
		w := w
		items[w] = make([]*testCancellable, perWorker)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c := &testCancellable{}
				items[w][i] = c
				s.Add(c)
			}
		}()
	}
	go func() {
		defer wg.Done()
		time.Sleep(time.Millisecond)
		s.Cancel()
	}()

	wg.Wait()
	for _, batch := range items {
		for _, c := range batch {
			// every added item is canceled exactly once: none leaked, none
			// double-canceled
			require.Equal(t, int32(1), c.cancels.Load())
		}
	}
}

func TestScope_cancelsFutures(t *testing.T) {
	s := NewScope()
	f := NewPromise[int]()
	s.Add(f)
	ch := NewChannel[int](1)
	s.Add(ch)

	s.Cancel()
	require.True(t, f.IsCanceled())
	require.True(t, ch.IsCanceled())
}

func TestScope_canceledOnFinalize(t *testing.T) {
	c := &testCancellable{}
	func() {
		s := NewScope()
		s.Add(c)
	}()
	for i := 0; i < 100; i++ {
		runtime.GC()
		if c.cancels.Load() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(`finalizer did not cancel the dropped scope`)
}
