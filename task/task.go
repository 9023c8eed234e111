// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package task

import (
	"context"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
)

// An Operation is the unit of work wrapped by a Task. It is run at most
// once, with a context that is cancelled when the Subscription is
// cancelled or once the operation's outcome has been decided.
//
// If the Subscription is cancelled while the operation runs, its
// result is discarded. A discarded value implementing io.Closer is
// closed.
type Operation[T any] func(ctx context.Context) (T, error)

// A Subscriber receives the outcome of a Task.
//
// OnSubscribe is always called first, synchronously from Subscribe.
// After that the Subscriber receives either nothing (if it never
// requests, or cancels in time), OnNext followed by OnComplete, or
// OnError alone. Signals after OnSubscribe arrive on the goroutine
// which ran the operation.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// A Subscription links one Task to its single Subscriber. All methods
// are safe for concurrent use.
type Subscription interface {
	// Request signals demand for n values. Values of n less than one
	// are ignored. The first call with n of at least one starts the
	// operation; later calls have no effect.
	Request(n int64)
	// Cancel abandons the subscription. If the operation is running
	// its context is cancelled. No further signals are delivered
	// unless the outcome was already decided.
	Cancel()
	// State returns the current state of the subscription.
	State() State
}

// State is the state of a Subscription.
type State int32

const (
	// Idle means no demand has been signaled yet.
	Idle State = iota
	// Active means the operation is running.
	Active
	// Completed means the operation finished and its outcome, value
	// or error, is being or has been delivered.
	Completed
	// Cancelled means the subscription was cancelled before the
	// operation finished.
	Cancelled
)

var stateNames = []string{
	"Idle",
	"Active",
	"Completed",
	"Cancelled",
}

// String returns the name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}

// Terminal indicates whether the state is Completed or Cancelled.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled
}

// A Task is a cold, single-subscription producer of the result of one
// Operation. Create one with New.
type Task[T any] struct {
	ctx        context.Context
	op         Operation[T]
	subscribed atomic.Bool
}

// New returns a Task which, on demand, runs op with a context derived
// from ctx. Neither ctx nor op may be nil.
func New[T any](ctx context.Context, op Operation[T]) *Task[T] {
	if ctx == nil {
		panic("httptask/task: nil context")
	}
	if op == nil {
		panic("httptask/task: nil operation")
	}

	return &Task[T]{ctx: ctx, op: op}
}

// Subscribe registers s as the Task's only Subscriber and calls its
// OnSubscribe method. Subscribing twice to the same Task panics.
func (t *Task[T]) Subscribe(s Subscriber[T]) {
	if s == nil {
		panic("httptask/task: nil subscriber")
	}
	if !t.subscribed.CompareAndSwap(false, true) {
		panic("httptask/task: already subscribed")
	}

	s.OnSubscribe(&subscription[T]{task: t, subscriber: s})
}

type subscription[T any] struct {
	task       *Task[T]
	subscriber Subscriber[T]

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

func (s *subscription[T]) Request(n int64) {
	if n < 1 {
		return
	}

	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.task.ctx)
	s.state = Active
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx)
}

func (s *subscription[T]) run(ctx context.Context) {
	v, err := s.task.op(ctx)

	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		discard(v, err)
		return
	}
	s.state = Completed
	s.mu.Unlock()

	s.cancel()
	if err != nil {
		s.subscriber.OnError(err)
		return
	}
	s.subscriber.OnNext(v)
	s.subscriber.OnComplete()
}

// discard releases a value produced after cancellation. Values which
// implement io.Closer are closed since no subscriber will ever own them.
func discard[T any](v T, err error) {
	if err != nil {
		return
	}
	if c, ok := any(v).(io.Closer); ok {
		_ = c.Close()
	}
}

func (s *subscription[T]) Cancel() {
	s.mu.Lock()
	prev := s.state
	if !prev.Terminal() {
		s.state = Cancelled
	}
	s.mu.Unlock()

	if prev == Active {
		s.cancel()
	}
}

func (s *subscription[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
