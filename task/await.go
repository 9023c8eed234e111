// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package task

import "context"

// Await subscribes to t, requests its single value, and blocks until
// the outcome is delivered or ctx is done.
//
// If ctx is done first, Await cancels the subscription and returns
// ctx.Err(), unless the outcome was decided concurrently, in which case
// the outcome is returned. Since Await subscribes, it may be called at
// most once and not at all if t already has a Subscriber.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	if ctx == nil {
		panic("httptask/task: nil context")
	}

	a := &awaiter[T]{done: make(chan struct{})}
	t.Subscribe(a)
	a.sub.Request(1)

	select {
	case <-a.done:
		return a.v, a.err
	case <-ctx.Done():
		a.sub.Cancel()
		if a.sub.State() == Completed {
			<-a.done
			return a.v, a.err
		}
		var zero T
		return zero, ctx.Err()
	}
}

type awaiter[T any] struct {
	sub  Subscription
	v    T
	err  error
	done chan struct{}
}

func (a *awaiter[T]) OnSubscribe(s Subscription) {
	a.sub = s
}

func (a *awaiter[T]) OnNext(v T) {
	a.v = v
}

func (a *awaiter[T]) OnError(err error) {
	a.err = err
	close(a.done)
}

func (a *awaiter[T]) OnComplete() {
	close(a.done)
}
