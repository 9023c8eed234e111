// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package task provides a cold, single-subscription asynchronous producer
of exactly one value or error.

A Task wraps one Operation. Nothing happens when the Task is created or
subscribed to: the operation starts only when the single Subscriber
signals demand through its Subscription. The operation runs at most
once, on its own goroutine, and its outcome is delivered to the
Subscriber as either OnNext followed by OnComplete, or OnError.

Cancelling the Subscription before the operation finishes cancels the
operation's context and moves the Subscription to the Cancelled state.
A Cancelled Subscription delivers nothing further, and any result the
operation produces afterwards is discarded. Cancellation after the
outcome has been decided is a no-op.

Most callers only need the outcome, and use Await:

	t := task.New(ctx, func(ctx context.Context) (int, error) {
		return compute(ctx)
	})
	v, err := t.Await(ctx)

A Task may be subscribed to only once. Callers who need the outcome in
several places must fan it out themselves.
*/
package task
