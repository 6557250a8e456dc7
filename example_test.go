package coroutine_test

import (
	"fmt"

	coroutine "github.com/joeycumines/go-coroutine"
)

func ExampleStartFuture() {
	serial := coroutine.NewSerialExecutor()
	request := coroutine.NewPromise[int]()

	future := coroutine.StartFuture(serial, func() (int, error) {
		// suspends until the promise resolves; serial is free meanwhile
		v, err := request.Await()
		if err != nil {
			return 0, err
		}
		return v * 2, nil
	})

	request.Succeed(21)

	done := make(chan struct{})
	future.WhenComplete(func(v int, err error) {
		fmt.Println(v, err)
		close(done)
	})
	<-done

	// Output:
	// 42 <nil>
}

func ExampleChannel() {
	ch := coroutine.NewChannel[string](2)

	sender := coroutine.StartFuture(coroutine.GoExecutor, func() (struct{}, error) {
		for _, s := range []string{`a`, `b`, `c`} {
			if err := ch.AwaitSend(s); err != nil {
				return struct{}{}, err
			}
		}
		ch.Close()
		return struct{}{}, nil
	})

	receiver := coroutine.StartFuture(coroutine.GoExecutor, func() (struct{}, error) {
		for s := range ch.Seq() {
			fmt.Println(s)
		}
		return struct{}{}, nil
	})

	for _, f := range []interface{ Finally(func()) }{sender, receiver} {
		done := make(chan struct{})
		f.Finally(func() { close(done) })
		<-done
	}

	// Output:
	// a
	// b
	// c
}

func ExampleScope() {
	scope := coroutine.NewScope()
	future := coroutine.NewPromise[int]()
	scope.Add(future)

	scope.Cancel()
	fmt.Println(future.IsCanceled())

	// Output:
	// true
}
