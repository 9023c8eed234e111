// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"net/http"
)

// A Service describes a remote API: where it lives, whether it is
// reached over a secure protocol, and which headers every request to it
// carries.
//
// Implementations must be safe for concurrent use by multiple
// goroutines, since one Service is typically shared by every request
// made to the API.
type Service interface {
	// BaseURL returns the default target for requests which do not
	// name their own. It may omit the scheme, for example
	// "api.example.com/v2", since the scheme is always chosen from the
	// secure flag.
	BaseURL() string
	// Secure returns the default secure-protocol flag.
	Secure() bool
	// Header returns the static headers sent with every request. It
	// has the lowest precedence of the three header tiers.
	Header() http.Header
	HeaderSource
}

// A HeaderSource asynchronously supplies additional headers, such as
// an authorization token, for a single request.
//
// ResolveHeader is called exactly once per assembly, before anything
// else is done. A nil header and nil error means there is nothing to
// add. A non-nil error aborts the assembly.
type HeaderSource interface {
	ResolveHeader(ctx context.Context) (http.Header, error)
}

// The HeaderSourceFunc type is an adapter to allow the use of ordinary
// functions as header sources.
type HeaderSourceFunc func(ctx context.Context) (http.Header, error)

// ResolveHeader calls f(ctx).
func (f HeaderSourceFunc) ResolveHeader(ctx context.Context) (http.Header, error) {
	return f(ctx)
}

// BasicService is a Service built from plain values. Its zero value is
// an insecure service with no base URL, no static headers, and no
// header source.
type BasicService struct {
	// Base is returned by BaseURL.
	Base string
	// TLS is returned by Secure.
	TLS bool
	// StaticHeader is returned by Header.
	StaticHeader http.Header
	// Source, if not nil, supplies the resolved headers.
	Source HeaderSource
}

// BaseURL returns s.Base.
func (s *BasicService) BaseURL() string {
	return s.Base
}

// Secure returns s.TLS.
func (s *BasicService) Secure() bool {
	return s.TLS
}

// Header returns s.StaticHeader.
func (s *BasicService) Header() http.Header {
	return s.StaticHeader
}

// ResolveHeader delegates to s.Source, or returns nothing if Source is
// nil.
func (s *BasicService) ResolveHeader(ctx context.Context) (http.Header, error) {
	if s.Source == nil {
		return nil, nil
	}

	return s.Source.ResolveHeader(ctx)
}
