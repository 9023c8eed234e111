// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"syscall"
)

// A Category is the category of a particular error, as reported by
// function Categorize.
//
// The category Not means the error is not transient, or in other
// words that a fresh attempt after encountering this error is very
// unlikely to succeed. Canceled means the work was abandoned on
// purpose and says nothing about the remote side.
//
// All other categories indicate the error is transient, or in other
// words that a fresh attempt has some prospect of success.
type Category int

const (
	// Not indicates any non-transient error, and the nil error.
	Not Category = iota
	// Timeout indicates a client-side timeout. The server may be going
	// through a temporary period of slowness.
	//
	// Function Categorize returns Timeout if the error or any of its
	// wrapped causes has a Timeout method that reports true, or is
	// context.DeadlineExceeded.
	Timeout
	// ConnRefused indicates the remote host refused the connection, and
	// corresponds to the POSIX error code ECONNREFUSED.
	//
	// It is classified as transient because a service which is starting
	// or restarting is temporarily not listening on its port.
	ConnRefused
	// ConnReset indicates the remote host returned an RST packet on a
	// previously active TCP connection, and corresponds to the POSIX
	// error code ECONNRESET.
	ConnReset
	// Canceled indicates the error is, or wraps, context.Canceled.
	// Cancellation is checked after Timeout.
	Canceled
)

var categoryNames = []string{
	"not",
	"timeout",
	"conn_refused",
	"conn_reset",
	"canceled",
}

// String returns a snake-case name for the category, suitable for use
// as a metric label value.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return categoryNames[Not]
	}
	return categoryNames[c]
}

// Transient reports whether the category is one of the transient
// categories.
func (c Category) Transient() bool {
	return c == Timeout || c == ConnRefused || c == ConnReset
}

// Categorize returns the category of the given error. A nil error,
// and an error which is not transient, both produce Not.
//
// In assessing the category, Categorize looks at wrapped cause errors
// contained within err, not just err itself. Categorize never checks
// if an error has a Temporary method, as its semantics aren't clear.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == syscall.ECONNRESET {
			return ConnReset
		} else if errno == syscall.ECONNREFUSED {
			return ConnRefused
		}
	}

	if errors.Is(err, context.Canceled) {
		return Canceled
	}

	return Not
}

type hasTimeout interface {
	Timeout() bool
}
