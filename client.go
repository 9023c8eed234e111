// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/task"
	"github.com/gogama/httptask/timeout"
	"github.com/google/uuid"
)

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

var emptyHandlers = HandlerGroup{}

// A Client turns typed requests into cold tasks which, on demand,
// assemble a descriptor and dispatch it exactly once. Its zero value
// is a valid configuration.
//
// The zero value client uses http.DefaultClient (from net/http) as the
// HTTPDoer, websocket.DefaultDialer (from github.com/gorilla/websocket)
// as the Dialer, timeout.DefaultPolicy as the timeout policy, and an
// empty handler group (no event handlers/plug-ins).
//
// Client's HTTPDoer typically has an internal state (cached TCP
// connections) so Client instances should be reused instead of created
// as needed. Client is safe for concurrent use by multiple goroutines.
//
// On top of the HTTP request features provided by the HTTPDoer, Client
// adds the following features:
//
// • Client runs the assembly pipeline (see Build) inside the task, so
// nothing at all happens, not even header resolution, until the task's
// subscriber signals demand;
//
// • Client reads and buffers the entire HTTP response body into an
// immutable request.Envelope;
//
// • Client bounds each dispatch, including reading the body, using a
// customizable timeout policy;
//
// • Client wraps every transport failure in a *request.Error with Kind
// Transport, without retrying or otherwise interpreting it; and
//
// • Client invokes user-provided handler functions at designated plug-in
// points within the execution, allowing new features such as logging
// and metrics to be mixed in from outside libraries.
//
// A non-2XX status code is not an error. The envelope is delivered and
// the caller decides what the status means.
type Client struct {
	// HTTPDoer specifies the mechanics of sending HTTP requests and
	// receiving responses.
	//
	// If HTTPDoer is nil, http.DefaultClient from the standard net/http
	// package is used.
	HTTPDoer HTTPDoer
	// Dialer opens streaming connections for Stream.
	//
	// If Dialer is nil, websocket.DefaultDialer is used.
	Dialer WebSocketDialer
	// TimeoutPolicy specifies how to set the timeout on each dispatch.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during an execution.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
}

// Task returns a cold task which, once its subscriber requests a value,
// builds req for svc exactly as Build does and dispatches the result.
//
// The task delivers exactly one outcome: the response envelope, or a
// *request.Error. Cancelling the subscription cancels the in-flight
// request and suppresses the outcome.
func (c *Client) Task(ctx context.Context, svc Service, req Request) *task.Task[*request.Envelope] {
	return task.New(ctx, func(ctx context.Context) (*request.Envelope, error) {
		e := c.execute(ctx, func(ctx context.Context) (*request.Descriptor, error) {
			return Build(ctx, svc, req)
		}, c.send)
		return e.Envelope, e.Err
	})
}

// Dispatch returns a cold task which, once its subscriber requests a
// value, checks that d is wire-ready and sends it. d may not be nil.
func (c *Client) Dispatch(ctx context.Context, d *request.Descriptor) *task.Task[*request.Envelope] {
	if d == nil {
		panic("httptask: nil descriptor")
	}

	return task.New(ctx, func(ctx context.Context) (*request.Envelope, error) {
		e := c.execute(ctx, func(context.Context) (*request.Descriptor, error) {
			if err := d.Validate(); err != nil {
				return nil, err
			}
			return d, nil
		}, c.send)
		return e.Envelope, e.Err
	})
}

// Do builds and dispatches req for svc, and waits for the outcome. It
// is shorthand for c.Task(ctx, svc, req).Await(ctx).
func (c *Client) Do(ctx context.Context, svc Service, req Request) (*request.Envelope, error) {
	return c.Task(ctx, svc, req).Await(ctx)
}

func (c *Client) execute(ctx context.Context, assemble func(context.Context) (*request.Descriptor, error),
	dispatch func(context.Context, *request.Execution, *HandlerGroup)) *request.Execution {
	e := &request.Execution{
		ID: uuid.Must(uuid.NewV7()).String(),
	}

	handlers := c.Handlers
	if handlers == nil {
		handlers = &emptyHandlers
	}
	handlers.run(BeforeExecutionStart, e)
	e.Start = time.Now()

	e.Descriptor, e.Err = assemble(ctx)
	if e.Err == nil {
		dispatch(ctx, e, handlers)
		if e.Timeout() {
			handlers.run(AfterDispatchTimeout, e)
		}
		handlers.run(AfterDispatch, e)
	}

	e.End = time.Now()
	handlers.run(AfterExecutionEnd, e)
	return e
}

func (c *Client) send(ctx context.Context, e *request.Execution, handlers *HandlerGroup) {
	ctx, cancel := context.WithTimeout(ctx, c.timeoutPolicy().Timeout(e))
	defer cancel()
	e.Request = e.Descriptor.ToRequest(ctx)
	handlers.run(BeforeDispatch, e)
	var err error
	e.Response, err = c.doer().Do(e.Request)
	if err != nil {
		e.Err = transportError(e, err)
	} else {
		readBody(e, handlers)
	}
}

func readBody(e *request.Execution, handlers *HandlerGroup) {
	defer func() {
		_ = e.Response.Body.Close()
	}()
	handlers.run(BeforeReadBody, e)
	body, err := io.ReadAll(e.Response.Body)
	if err != nil {
		e.Err = transportError(e, err)
		return
	}
	e.Envelope = request.NewEnvelope(e.Response.StatusCode, e.Response.Header, body)
}

// CloseIdleConnections invokes the same method on the client's
// underlying HTTPDoer.
//
// If the HTTPDoer has no CloseIdleConnections method, this method does
// nothing.
func (c *Client) CloseIdleConnections() {
	doer := c.doer()
	if ic, ok := doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) doer() HTTPDoer {
	if c.HTTPDoer == nil {
		return http.DefaultClient
	}

	return c.HTTPDoer
}

func (c *Client) timeoutPolicy() timeout.Policy {
	if c.TimeoutPolicy == nil {
		return timeout.DefaultPolicy
	}

	return c.TimeoutPolicy
}

// transportError wraps err as a Transport error. A *url.Error from the
// HTTPDoer is unwrapped first since Op and URL are recorded anyway.
func transportError(e *request.Execution, err error) error {
	if ue, ok := err.(*url.Error); ok {
		err = ue.Err
	}

	method, u := e.Descriptor.Method().String(), e.Descriptor.URL().String()
	if e.Request != nil {
		method, u = e.Request.Method, e.Request.URL.String()
	}

	return &request.Error{
		Kind: request.Transport,
		Op:   urlErrorOp(method),
		URL:  u,
		Err:  err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
