// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"net/http"
	"strconv"
)

// An Envelope is the immutable result of one completed network call:
// status code, response header, and the fully-buffered response body.
type Envelope struct {
	statusCode int
	header     http.Header
	body       []byte
}

// NewEnvelope returns an Envelope holding copies of header and body.
func NewEnvelope(statusCode int, header http.Header, body []byte) *Envelope {
	h := header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	var b []byte
	if body != nil {
		b = bytes.Clone(body)
	}
	return &Envelope{
		statusCode: statusCode,
		header:     h,
		body:       b,
	}
}

// StatusCode returns the HTTP status code.
func (e *Envelope) StatusCode() int {
	return e.statusCode
}

// Status returns the status code followed by its standard text, for
// example "200 OK". Unknown codes have no text.
func (e *Envelope) Status() string {
	s := http.StatusText(e.statusCode)
	if s == "" {
		return strconv.Itoa(e.statusCode)
	}
	return strconv.Itoa(e.statusCode) + " " + s
}

// Header returns a copy of the response header.
func (e *Envelope) Header() http.Header {
	return e.header.Clone()
}

// Body returns a copy of the response body. It is never nil for an
// Envelope built from a response, but may be empty.
func (e *Envelope) Body() []byte {
	if e.body == nil {
		return nil
	}
	return bytes.Clone(e.body)
}

// Len returns the length of the response body.
func (e *Envelope) Len() int {
	return len(e.body)
}

// OK reports whether the status code is in the 2XX range.
func (e *Envelope) OK() bool {
	return e.statusCode >= 200 && e.statusCode < 300
}
