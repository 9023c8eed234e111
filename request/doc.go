// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core value types Descriptor (describes one
outbound request), Envelope (the result of one completed call), and
Execution (the state of one task run), together with the Error type
which every failure in the module is reported as.

A Descriptor is immutable. It is created with New and refined with a
chain of With methods, each of which returns a new Descriptor:

	d, err := request.New("api.example.com")
	...
	d = d.WithScheme("https").
		WithMethod(request.POST).
		WithRoute("users", "42")
	d, err = d.WithQuery(request.Param{Key: "verbose", Value: "true"})
	...
	d, err = d.WithBody(request.Body{Payload: map[string]string{"name": "a"}})
	...

Because no method mutates its receiver, a Descriptor may be shared
between goroutines, and a failed step never leaves a partially-built
Descriptor behind: the failing method returns nil and an *Error.

The wire form of a Descriptor is produced by ToRequest, which returns a
fresh net/http request on every call.

Every failure is an *Error whose Kind says which stage failed. Use
errors.Is with the package sentinels, or KindOf, to test for a kind:

	if errors.Is(err, request.ErrEncoding) {
		...
	}
*/
package request
