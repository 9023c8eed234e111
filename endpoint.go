// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"net/http"

	"github.com/gogama/httptask/request"
)

// A Request is a typed description of one call to a Service. Build
// turns it into a wire-ready request.Descriptor.
//
// Applications typically define one type per API operation, embed
// BasicRequest in it, and override only the methods they need.
type Request interface {
	// URL returns an explicit target, or the empty string to use the
	// service's base URL.
	URL() string
	// Method returns the request method.
	Method() request.Method
	// Route returns the path segments appended to the target, in
	// order.
	Route() []string
	// Query returns the query parameters, in order.
	Query() []request.Param
	// Header returns the request-specific headers. They have the
	// highest precedence of the three header tiers.
	Header() http.Header
	// Body returns the body, or nil for no body.
	Body() *request.Body
	// Secure overrides the service's secure flag when it returns a
	// non-nil value.
	Secure() *bool
	// Prepare is an asynchronous hook run after the body is attached.
	// It returns the descriptor to continue with, typically d itself
	// or d with extra preparations added. A non-nil error aborts the
	// assembly.
	Prepare(ctx context.Context, d *request.Descriptor) (*request.Descriptor, error)
	// Validate is the last assembly step. A non-nil error rejects the
	// fully assembled descriptor.
	Validate(d *request.Descriptor) error
}

// BasicRequest is a Request built from plain values. Its zero value is
// a GET to the service's base URL with nothing added.
type BasicRequest struct {
	// Target is returned by URL.
	Target string
	// Verb is returned by Method.
	Verb request.Method
	// Path is returned by Route.
	Path []string
	// Params is returned by Query.
	Params []request.Param
	// ExtraHeader is returned by Header.
	ExtraHeader http.Header
	// Payload is returned by Body.
	Payload *request.Body
	// SecureOverride is returned by Secure.
	SecureOverride *bool
}

func (r BasicRequest) URL() string {
	return r.Target
}

func (r BasicRequest) Method() request.Method {
	return r.Verb
}

func (r BasicRequest) Route() []string {
	return r.Path
}

func (r BasicRequest) Query() []request.Param {
	return r.Params
}

func (r BasicRequest) Header() http.Header {
	return r.ExtraHeader
}

func (r BasicRequest) Body() *request.Body {
	return r.Payload
}

func (r BasicRequest) Secure() *bool {
	return r.SecureOverride
}

// Prepare returns d unchanged.
func (r BasicRequest) Prepare(_ context.Context, d *request.Descriptor) (*request.Descriptor, error) {
	return d, nil
}

// Validate accepts every descriptor.
func (r BasicRequest) Validate(_ *request.Descriptor) error {
	return nil
}
