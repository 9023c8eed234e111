// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/httptask/request"
)

// A Policy defines a timeout policy which may be plugged into the
// client (httptask.Client) to direct how long the dispatch of an
// assembled descriptor may take, including reading the response body.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout to set on the dispatch.
	//
	// Parameter e contains the current state of the execution. Its
	// Descriptor field is always set when Timeout is called.
	Timeout(e *request.Execution) time.Duration
}

// DefaultPolicy is the default timeout policy. It sets a fixed timeout
// of 5 seconds on each dispatch.
var DefaultPolicy Policy = Fixed(5 * time.Second)

// Infinite is a built-in timeout policy which never times out.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed constructs a timeout policy that uses the same value to set
// every dispatch timeout.
func Fixed(d time.Duration) Policy {
	return fixed(d)
}

type fixed time.Duration

func (f fixed) Timeout(_ *request.Execution) time.Duration {
	return time.Duration(f)
}

// ByMethod constructs a timeout policy that chooses the timeout based
// on the request method of the execution's descriptor.
//
// Methods not present in m, and executions without a descriptor, get
// the usual timeout. The map is copied, so later changes to m do not
// affect the policy.
//
// Consider the following timeout policy:
//
//	p := ByMethod(2*time.Second, map[request.Method]time.Duration{
//		request.POST: 30 * time.Second,
//	})
//
// The policy p gives uploads half a minute and every other method two
// seconds.
func ByMethod(usual time.Duration, m map[request.Method]time.Duration) Policy {
	p := byMethod{usual: usual, m: make(map[request.Method]time.Duration, len(m))}
	for k, v := range m {
		p.m[request.Method(k.String())] = v
	}
	return p
}

type byMethod struct {
	usual time.Duration
	m     map[request.Method]time.Duration
}

func (p byMethod) Timeout(e *request.Execution) time.Duration {
	if e.Descriptor == nil {
		return p.usual
	}

	if d, ok := p.m[request.Method(e.Descriptor.Method().String())]; ok {
		return d
	}

	return p.usual
}
