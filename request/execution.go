// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/httptask/transient"
)

// An Execution represents the state of one task run: descriptor
// assembly followed by a single dispatch.
//
// The client creates an Execution when a task is activated and updates
// it as the run progresses. Event handlers receive it at each event.
// Handlers may store data on it using SetValue and read it back using
// Value, but should treat the exported fields as read-only. A limited
// exception is making reasonable changes to Request during the
// BeforeDispatch event (for example, to sign it).
type Execution struct {
	// ID uniquely identifies the run. It is set before the first event
	// fires and never changes.
	ID string

	// Start is the start time of the run. It is set when the run
	// starts and remains constant thereafter.
	Start time.Time

	// End is the end time of the run. It contains the zero value until
	// the run ends.
	End time.Time

	// Descriptor is the assembled request descriptor. It is nil until
	// assembly succeeds, and stays nil if assembly fails.
	Descriptor *Descriptor

	// Request is the wire request built from Descriptor. It is nil
	// until just before dispatch.
	Request *http.Request

	// Response is the HTTP response received, or nil if the dispatch
	// ended in error or has not happened yet.
	Response *http.Response

	// Envelope is the immutable result delivered to the subscriber. It
	// is set only after the response body has been read successfully.
	Envelope *Envelope

	// Err is the error which ended the run, if any. Whenever Err is
	// non-nil it has the type *Error.
	Err error

	data context.Context
}

// StatusCode returns the status code of the HTTP response, or 0 if
// there is no response.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the HTTP response header, or the nil header if there
// is no response. The nil header is safe for read-only operations.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the run.
//
// If the run has not started, the duration is zero. If the run has
// ended, it is End minus Start. Otherwise it is the current time minus
// Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the run has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the run has ended. Once it has, there will
// be no further changes to the execution.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout indicates whether Err currently indicates a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// Canceled indicates whether Err was caused by cancellation, either
// of the subscription or of the task's parent context.
func (e *Execution) Canceled() bool {
	return transient.Categorize(e.Err) == transient.Canceled
}

// SetValue allows event handlers to store arbitrary data in the
// execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue, namely it:
//
// • it may not be nil;
//
// • it must be comparable;
//
// • it should not be of type string or any other built-in type to avoid
// collisions between different event handlers putting data into the
// same execution.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
