// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

// A Method is an HTTP request method. The zero value means GET.
type Method string

// The HTTP methods registered in RFC 7231 and RFC 5789.
const (
	GET     Method = "GET"
	HEAD    Method = "HEAD"
	POST    Method = "POST"
	PUT     Method = "PUT"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	CONNECT Method = "CONNECT"
	OPTIONS Method = "OPTIONS"
	TRACE   Method = "TRACE"
)

// Methods returns the registered methods in a stable order.
func Methods() []Method {
	return []Method{GET, HEAD, POST, PUT, PATCH, DELETE, CONNECT, OPTIONS, TRACE}
}

// String returns the method name, substituting GET for the empty
// method.
func (m Method) String() string {
	if m == "" {
		return string(GET)
	}
	return string(m)
}

// Valid reports whether m is a valid method token. Extension methods
// are valid as long as they are tokens per RFC 7230 section 3.2.6.
// The empty method is valid and means GET.
func (m Method) Valid() bool {
	return strings.IndexFunc(string(m), isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}
