// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"errors"
	"net/http"

	"github.com/gogama/httptask/request"
)

// Build assembles the wire-ready descriptor for req sent to svc.
//
// The steps run in a fixed order, and the first failure ends the
// assembly:
//
// • the service's supplementary headers are resolved, exactly once;
//
// • the target (req.URL, or the service base URL if empty) is parsed;
//
// • the scheme is set to https or http from the secure flag, where the
// request's override beats the service default;
//
// • the method, route, and query are applied;
//
// • the header tiers are merged in ascending precedence: service
// static headers, resolved headers, then request headers;
//
// • the body, if any, is encoded and attached;
//
// • req.Prepare runs, then the descriptor's own wire-readiness check,
// then req.Validate.
//
// On failure Build returns a nil descriptor and a *request.Error. A
// failure to resolve headers, or from Prepare, has Kind Preparation and
// wraps the cause. A rejection by req.Validate has Kind Validation.
func Build(ctx context.Context, svc Service, req Request) (*request.Descriptor, error) {
	resolved, d, err := begin(ctx, svc, req, "https", "http")
	if err != nil {
		return nil, err
	}

	d = d.WithMethod(req.Method()).WithRoute(req.Route()...)
	if d, err = d.WithQuery(req.Query()...); err != nil {
		return nil, err
	}
	d = mergeHeaders(d, svc, resolved, req)
	if b := req.Body(); b != nil {
		if d, err = d.WithBody(*b); err != nil {
			return nil, err
		}
	}

	u := d.URL().String()
	if d, err = req.Prepare(ctx, d); err != nil {
		return nil, &request.Error{Kind: request.Preparation, Op: "Prepare", URL: u, Err: err}
	} else if d == nil {
		return nil, &request.Error{Kind: request.Preparation, Op: "Prepare", URL: u, Err: errors.New("nil descriptor")}
	}
	if err = d.Validate(); err != nil {
		return nil, err
	}
	if err = req.Validate(d); err != nil {
		return nil, &request.Error{Kind: request.Validation, Op: "Validate", URL: d.URL().String(), Err: err}
	}

	return d, nil
}

// BuildStream assembles the descriptor for the upgrade request which
// opens a streaming connection for req to svc.
//
// BuildStream is a reduced Build: it resolves headers, parses the
// target, sets the scheme to wss or ws from the secure flag, forces
// the method to GET, applies the route, and merges the header tiers.
// The request's query, body, Prepare, and Validate are not consulted.
func BuildStream(ctx context.Context, svc Service, req Request) (*request.Descriptor, error) {
	resolved, d, err := begin(ctx, svc, req, "wss", "ws")
	if err != nil {
		return nil, err
	}

	d = d.WithMethod(request.GET).WithRoute(req.Route()...)
	return mergeHeaders(d, svc, resolved, req), nil
}

func begin(ctx context.Context, svc Service, req Request, secure, insecure string) (http.Header, *request.Descriptor, error) {
	if ctx == nil {
		panic("httptask: nil context")
	}
	if svc == nil {
		panic("httptask: nil service")
	}
	if req == nil {
		panic("httptask: nil request")
	}

	resolved, err := svc.ResolveHeader(ctx)
	if err != nil {
		return nil, nil, &request.Error{Kind: request.Preparation, Op: "ResolveHeader", Err: err}
	}

	target := req.URL()
	if target == "" {
		target = svc.BaseURL()
	}
	d, err := request.New(target)
	if err != nil {
		return nil, nil, err
	}

	return resolved, d.WithScheme(scheme(svc, req, secure, insecure)), nil
}

func scheme(svc Service, req Request, secure, insecure string) string {
	s := svc.Secure()
	if o := req.Secure(); o != nil {
		s = *o
	}
	if s {
		return secure
	}
	return insecure
}

func mergeHeaders(d *request.Descriptor, svc Service, resolved http.Header, req Request) *request.Descriptor {
	return d.WithHeader(svc.Header()).WithHeader(resolved).WithHeader(req.Header())
}
