package coroutine

import (
	"sync"
)

// Executor is the single capability the runtime consumes: schedule a task
// for execution, later, possibly on another goroutine. The runtime stores an
// Executor as each coroutine's resume submitter; it must be non-nil for any
// coroutine that may suspend.
//
// Implementations must not drop submitted tasks: a dropped task strands the
// coroutine it would have resumed.
type Executor interface {
	Submit(task func())
}

// ExecutorFunc adapts a function to the [Executor] interface.
type ExecutorFunc func(task func())

// Submit implements [Executor].
func (f ExecutorFunc) Submit(task func()) { f(task) }

// GoExecutor is the default any-thread executor, running each task on its
// own goroutine.
var GoExecutor Executor = ExecutorFunc(func(task func()) { go task() })

// SerialExecutor runs tasks one at a time, in submission order. It is the
// in-process equivalent of a serial dispatch queue or "main thread"
// executor: coroutines resumed through it are strictly interleaved by
// resume order.
//
// Instances must be initialized using the NewSerialExecutor factory.
type SerialExecutor struct {
	mu      sync.Mutex
	tasks   []func()
	running bool
}

// NewSerialExecutor initializes a new SerialExecutor.
func NewSerialExecutor() *SerialExecutor {
	return &SerialExecutor{}
}

// Submit implements [Executor]. Tasks run in submission order, never
// concurrently with each other. Submit itself never blocks on task
// execution.
func (x *SerialExecutor) Submit(task func()) {
	if task == nil {
		panic(`coroutine: nil task`)
	}
	x.mu.Lock()
	x.tasks = append(x.tasks, task)
	if x.running {
		x.mu.Unlock()
		return
	}
	x.running = true
	x.mu.Unlock()
	go x.run()
}

func (x *SerialExecutor) run() {
	for {
		x.mu.Lock()
		if len(x.tasks) == 0 {
			x.running = false
			x.mu.Unlock()
			return
		}
		task := x.tasks[0]
		x.tasks[0] = nil
		x.tasks = x.tasks[1:]
		x.mu.Unlock()

		task()
	}
}
