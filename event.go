// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to extend it with custom
// functionality.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs before the
	// execution starts, which is to say after the task's subscriber
	// has signaled demand but before the descriptor is assembled.
	//
	// When Client fires BeforeExecutionStart, the execution is
	// non-nil but the only field that has been set is the ID.
	BeforeExecutionStart Event = iota
	// BeforeDispatch identifies the event that occurs after the
	// descriptor has been assembled and converted into an HTTP request,
	// immediately before the request is sent.
	//
	// When Client fires BeforeDispatch, the execution's request field
	// is set to the HTTP request that WILL BE sent after all
	// BeforeDispatch handlers have finished. Handlers may modify it,
	// for example to sign it. The request's URL and Header are copies
	// owned by this execution.
	//
	// BeforeDispatch never fires if assembly failed.
	BeforeDispatch
	// BeforeReadBody identifies the event that occurs after dispatch
	// has resulted in an HTTP response (as opposed to an error) but
	// before the response body is read and buffered.
	//
	// When Client fires BeforeReadBody, the execution's response field
	// is set to the HTTP response whose body WILL BE read after all
	// BeforeReadBody handlers have finished.
	//
	// BeforeReadBody never fires for streams, whose handshake response
	// has no body to speak of.
	BeforeReadBody
	// AfterDispatchTimeout identifies the event that occurs after the
	// dispatch failed because of a timeout error, either from the
	// client's timeout policy or from a deadline on the task context.
	//
	// When Client fires AfterDispatchTimeout, the execution's error
	// field is set to the timeout error.
	AfterDispatchTimeout
	// AfterDispatch identifies the event that occurs after the dispatch
	// is concluded, regardless of whether it concluded successfully or
	// not.
	//
	// When Client fires AfterDispatch, either the execution's envelope
	// field or its error field will be set, but never both.
	AfterDispatch
	// AfterExecutionEnd identifies the event that occurs after the
	// execution ends, whether assembly failed, dispatch failed, or a
	// result was produced.
	//
	// When Client fires AfterExecutionEnd, the execution is in its
	// final state and its end time is set. If the task was cancelled
	// the result in the execution is never delivered to the subscriber.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeDispatch",
	"BeforeReadBody",
	"AfterDispatchTimeout",
	"AfterDispatch",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events which can occur in an
// execution by Client, in the order in which they would occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeDispatch,
		BeforeReadBody,
		AfterDispatchTimeout,
		AfterDispatch,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
