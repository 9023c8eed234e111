// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"io"
	"net/http"

	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/task"
	"github.com/gorilla/websocket"
)

// A WebSocketDialer opens a WebSocket connection. *websocket.Dialer
// from github.com/gorilla/websocket implements it.
type WebSocketDialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// A Stream is an open streaming connection together with the response
// to the upgrade request which opened it.
type Stream struct {
	// Conn is the open connection. The receiver of a Stream owns it and
	// must close it.
	Conn *websocket.Conn
	// Handshake holds the status and headers of the upgrade response.
	Handshake *request.Envelope
}

// Close closes the underlying connection. It is safe to call on a nil
// Stream.
func (s *Stream) Close() error {
	if s == nil || s.Conn == nil {
		return nil
	}

	return s.Conn.Close()
}

// Stream returns a cold task which, once its subscriber requests a
// value, builds the upgrade request for req as BuildStream does and
// dials it.
//
// The dial is subject to the client's timeout policy and fires the
// same events as Task, except BeforeReadBody. BeforeDispatch handlers
// may modify the URL and Header of the execution's request, and the
// modified values are used to dial. A connection opened after the
// subscription was cancelled is closed rather than delivered.
func (c *Client) Stream(ctx context.Context, svc Service, req Request) *task.Task[*Stream] {
	return task.New(ctx, func(ctx context.Context) (*Stream, error) {
		var conn *websocket.Conn
		e := c.execute(ctx, func(ctx context.Context) (*request.Descriptor, error) {
			return BuildStream(ctx, svc, req)
		}, func(ctx context.Context, e *request.Execution, handlers *HandlerGroup) {
			conn = c.dial(ctx, e, handlers)
		})
		if e.Err != nil {
			return nil, e.Err
		}
		return &Stream{Conn: conn, Handshake: e.Envelope}, nil
	})
}

func (c *Client) dial(ctx context.Context, e *request.Execution, handlers *HandlerGroup) *websocket.Conn {
	ctx, cancel := context.WithTimeout(ctx, c.timeoutPolicy().Timeout(e))
	defer cancel()
	e.Request = e.Descriptor.ToRequest(ctx)
	handlers.run(BeforeDispatch, e)
	conn, resp, err := c.dialer().DialContext(ctx, e.Request.URL.String(), e.Request.Header)
	e.Response = resp
	if err != nil {
		e.Err = transportError(e, err)
		return nil
	}

	var body []byte
	if resp != nil {
		if resp.Body != nil {
			body, _ = io.ReadAll(resp.Body)
			_ = resp.Body.Close()
		}
		e.Envelope = request.NewEnvelope(resp.StatusCode, resp.Header, body)
	} else {
		e.Envelope = request.NewEnvelope(http.StatusSwitchingProtocols, nil, nil)
	}
	return conn
}

func (c *Client) dialer() WebSocketDialer {
	if c.Dialer == nil {
		return websocket.DefaultDialer
	}

	return c.Dialer
}
