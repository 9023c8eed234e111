// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"

	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/task"
)

// Dispatcher is the interface that wraps the basic Dispatch method.
//
// Dispatch returns a cold task which sends an assembled descriptor
// once its subscriber signals demand. Client implements the Dispatcher
// interface, and any other Dispatcher implementation must behave
// substantially the same as Client.Dispatch.
//
// Any Dispatcher can be converted into an Executor via the Inflate
// function.
type Dispatcher interface {
	Dispatch(ctx context.Context, d *request.Descriptor) *task.Task[*request.Envelope]
}

// Tasker is the interface that wraps the basic Task method.
//
// Task returns a cold task which assembles and sends a typed request
// once its subscriber signals demand. Client implements the Tasker
// interface, and any other Tasker implementation must behave
// substantially the same as Client.Task.
//
// Any Dispatcher can be used to emulate a Tasker via the Task function.
type Tasker interface {
	Task(ctx context.Context, svc Service, req Request) *task.Task[*request.Envelope]
}

// Doer is the interface that wraps the basic Do method.
//
// Do assembles and sends a typed request and waits for the outcome.
// Client implements the Doer interface, and any other Doer
// implementation must behave substantially the same as Client.Do.
//
// Any Dispatcher can be used to emulate a Doer via the Do function.
type Doer interface {
	Do(ctx context.Context, svc Service, req Request) (*request.Envelope, error)
}

// Streamer is the interface that wraps the basic Stream method.
//
// Stream returns a cold task which opens a streaming connection once
// its subscriber signals demand. Client implements the Streamer
// interface.
type Streamer interface {
	Stream(ctx context.Context, svc Service, req Request) *task.Task[*Stream]
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
//
// If the underlying implementation supports it, CloseIdleConnections
// closes any idle which were previously connected from previous
// requests but are now sitting idle in a "keep-alive" state. It does
// not interrupt any connections currently in use.
//
// If the underlying implementation does not support this ability,
// CloseIdleConnections does nothing.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor is the interface that groups the basic Dispatch, Task, Do,
// and CloseIdleConnections methods.
//
// Any Dispatcher can be converted into an Executor via the Inflate
// function.
type Executor interface {
	Dispatcher
	Tasker
	Doer
	IdleCloser
}

// Task uses the specified Dispatcher to return a cold task which, on
// demand, builds req for svc and dispatches the result.
//
// Unlike Client.Task, assembly happens outside any execution, so event
// handlers installed in the Dispatcher do not observe assembly
// failures.
func Task(ctx context.Context, d Dispatcher, svc Service, req Request) *task.Task[*request.Envelope] {
	return task.New(ctx, func(ctx context.Context) (*request.Envelope, error) {
		desc, err := Build(ctx, svc, req)
		if err != nil {
			return nil, err
		}
		return d.Dispatch(ctx, desc).Await(ctx)
	})
}

// Do uses the specified Dispatcher to build req for svc, dispatch it,
// and wait for the outcome.
func Do(ctx context.Context, d Dispatcher, svc Service, req Request) (*request.Envelope, error) {
	return Task(ctx, d, svc, req).Await(ctx)
}

// Inflate converts any non-nil Dispatcher into an Executor. This may be
// helpful for interop across library boundaries, i.e. if code that only
// has access to a Dispatcher needs to call a function that requires an
// Executor.
func Inflate(d Dispatcher) Executor {
	if d == nil {
		panic("httptask: nil dispatcher")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	dispatcher Dispatcher
}

func (i inflated) Dispatch(ctx context.Context, d *request.Descriptor) *task.Task[*request.Envelope] {
	return i.dispatcher.Dispatch(ctx, d)
}

func (i inflated) Task(ctx context.Context, svc Service, req Request) *task.Task[*request.Envelope] {
	return Task(ctx, i.dispatcher, svc, req)
}

func (i inflated) Do(ctx context.Context, svc Service, req Request) (*request.Envelope, error) {
	return Do(ctx, i.dispatcher, svc, req)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.dispatcher.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
