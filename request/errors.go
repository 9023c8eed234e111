// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"strings"

	"github.com/gogama/httptask/transient"
)

// A Kind classifies an Error by the stage which produced it.
type Kind int

const (
	// InvalidURL indicates the value given as a request target could
	// not be resolved to an absolute URL.
	InvalidURL Kind = iota + 1
	// Encoding indicates that query parameters or a request body could
	// not be serialized.
	Encoding
	// Preparation indicates that an asynchronous preparation step,
	// either supplementary header resolution or a request's Prepare
	// hook, failed. The cause is wrapped.
	Preparation
	// Validation indicates that the assembled descriptor was rejected,
	// either because it is not wire-ready or because a caller-supplied
	// business rule refused it.
	Validation
	// Transport indicates that the underlying network call failed. The
	// cause is wrapped without interpretation.
	Transport
)

var kindNames = []string{
	"unknown",
	"invalid URL",
	"encoding",
	"preparation",
	"validation",
	"transport",
}

// String returns a short lower-case name for the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[0]
	}
	return kindNames[k]
}

// Sentinel errors usable with errors.Is to test an error's Kind.
//
//	if errors.Is(err, request.ErrEncoding) {
//		...
//	}
var (
	ErrInvalidURL  error = &Error{Kind: InvalidURL}
	ErrEncoding    error = &Error{Kind: Encoding}
	ErrPreparation error = &Error{Kind: Preparation}
	ErrValidation  error = &Error{Kind: Validation}
	ErrTransport   error = &Error{Kind: Transport}
)

// An Error is the single terminal failure value produced when a
// request descriptor cannot be built or dispatched.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Op names the operation that failed, for example "WithQuery" or,
	// for transport failures, the HTTP method in url.Error style ("Get").
	Op string
	// URL is the request target as far as it was known when the
	// failure occurred. It may be empty.
	URL string
	// Err is the underlying cause. It may be nil.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("httptask/request: ")
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.URL != "" {
		b.WriteString(" \"")
		b.WriteString(e.URL)
		b.WriteString("\"")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind. Only the
// Kind is compared, which makes the package-level sentinels usable
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Timeout reports whether the cause is a timeout.
func (e *Error) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// KindOf returns the Kind of the first *Error found in err's chain, or
// zero if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
