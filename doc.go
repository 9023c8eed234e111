// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httptask turns typed descriptions of HTTP requests into cold,
single-delivery tasks.

Describe the remote API with a Service and each operation with a
Request, typically by embedding BasicRequest:

	svc := &httptask.BasicService{
		Base: "api.example.com",
		TLS:  true,
		Source: httptask.HeaderSourceFunc(func(ctx context.Context) (http.Header, error) {
			tok, err := tokens.Get(ctx)
			return http.Header{"Authorization": {"Bearer " + tok}}, err
		}),
	}

	type getUser struct {
		httptask.BasicRequest
		id string
	}

	func (r getUser) Route() []string { return []string{"users", r.id} }

Then ask a Client for a task and wait for it, or subscribe to it:

	client := &httptask.Client{}
	env, err := client.Do(ctx, svc, getUser{id: "42"})
	...
	t := client.Task(ctx, svc, getUser{id: "42"})
	t.Subscribe(mySubscriber) // nothing is sent until mySubscriber requests

Every failure is a *request.Error whose Kind tells which stage failed:

	if errors.Is(err, request.ErrPreparation) {
		// The token source, or the request's Prepare hook, failed.
	}

For control over how the client sends HTTP requests and receives HTTP
responses, use a custom HTTPDoer. For example, use a GoLang standard
HTTP client:

	doer := &http.Client{
		..., // See package "net/http" for detailed documentation
	}
	client := &httptask.Client{
		HTTPDoer: doer,
	}

For control over the timeout on each dispatch, set a custom timeout
policy using package timeout:

	client := &httptask.Client{
		TimeoutPolicy: timeout.Fixed(10*time.Second),
	}

To hook into the fine-grained details of the client's execution logic,
install a handler into the appropriate handler chain. Packages diag and
metrics provide ready-made handlers for logging and Prometheus metrics:

	handlers := &httptask.HandlerGroup{}
	handlers.PushBack(httptask.AfterExecutionEnd, diag.NewLogHandler(logger, diag.NewFormatter(diag.DefaultConfig())))
	client := &httptask.Client{
		HTTPDoer: doer,
		Handlers: handlers,
	}

Use Stream instead of Task to open a WebSocket connection with the same
service and request descriptions. Build and BuildStream expose the
assembly pipeline on its own, for callers who want the descriptor
without sending it.
*/
package httptask
