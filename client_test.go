// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/task"
	"github.com/gogama/httptask/timeout"
	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	t.Run("happy path", testClientHappyPath)
	t.Run("zero value", testClientZeroValue)
	t.Run("servers", testClientServers)
	t.Run("slow body", testClientSlowBody)
	t.Run("cold", testClientCold)
	t.Run("assembly failure", testClientAssemblyFailure)
	t.Run("transport failure", testClientTransportFailure)
	t.Run("dispatch timeout", testClientDispatchTimeout)
	t.Run("read body error", testClientBodyError)
	t.Run("cancel", testClientCancel)
	t.Run("dispatch", testClientDispatch)
	t.Run("panic", testClientPanic)
	t.Run("close idle connections", testClientCloseIdleConnections)
}

func TestURLErrorOp(t *testing.T) {
	assert.Equal(t, "Get", urlErrorOp(""))
	assert.Equal(t, "Get", urlErrorOp("GET"))
	assert.Equal(t, "G", urlErrorOp("G"))
	assert.Equal(t, "X", urlErrorOp("X"))
	assert.Equal(t, "Xyz", urlErrorOp("XYZ"))
	assert.Equal(t, "Put", urlErrorOp("PUT"))
}

func testClientHappyPath(t *testing.T) {
	t.Parallel()

	mockDoer := newMockHTTPDoer(t)
	mockTimeoutPolicy := newMockTimeoutPolicy(t)
	cl := &Client{
		HTTPDoer:      mockDoer,
		TimeoutPolicy: mockTimeoutPolicy,
		Handlers:      &HandlerGroup{},
	}
	tr := cl.addTraceHandlers()
	cl.Handlers.PushBack(BeforeDispatch, HandlerFunc(func(_ Event, e *request.Execution) {
		e.Request.Header.Set("X-Signature", "signed")
	}))
	var last *request.Execution
	cl.Handlers.PushBack(AfterExecutionEnd, HandlerFunc(func(_ Event, e *request.Execution) {
		last = e
	}))

	resp := &http.Response{
		StatusCode: 201,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"id":42}`)),
	}
	mockDoer.On("Do", mock.MatchedBy(func(r *http.Request) bool {
		rc, _ := r.GetBody()
		b, _ := io.ReadAll(rc)
		return r.Method == "POST" &&
			r.URL.String() == "https://api.example.com/users?verbose=true" &&
			r.Header.Get("Authorization") == "Bearer t" &&
			r.Header.Get("X-Signature") == "signed" &&
			string(b) == `{"name":"a"}`
	})).Return(resp, nil).Once()
	mockTimeoutPolicy.On("Timeout", mock.MatchedBy(func(e *request.Execution) bool {
		return e.Descriptor != nil && e.Request == nil
	})).Return(time.Hour).Once()

	svc := &BasicService{
		Base: "api.example.com",
		TLS:  true,
		Source: HeaderSourceFunc(func(context.Context) (http.Header, error) {
			return http.Header{"Authorization": {"Bearer t"}}, nil
		}),
	}
	req := BasicRequest{
		Verb:    request.POST,
		Path:    []string{"users"},
		Params:  []request.Param{{Key: "verbose", Value: "true"}},
		Payload: &request.Body{Payload: map[string]string{"name": "a"}},
	}

	env, err := cl.Do(context.Background(), svc, req)

	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, 201, env.StatusCode())
	assert.Equal(t, []byte(`{"id":42}`), env.Body())
	assert.Equal(t, "application/json", env.Header().Get("Content-Type"))
	assert.Equal(t, []string{
		"BeforeExecutionStart",
		"BeforeDispatch",
		"BeforeReadBody",
		"AfterDispatch",
		"AfterExecutionEnd",
	}, tr.calls)
	require.NotNil(t, last)
	id, err := uuid.Parse(last.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.True(t, last.Ended())
	assert.False(t, last.End.Before(last.Start))
	assert.Same(t, env, last.Envelope)
	assert.Same(t, resp, last.Response)
	assert.NoError(t, last.Err)
	mockDoer.AssertExpectations(t)
	mockTimeoutPolicy.AssertExpectations(t)
}

func testClientZeroValue(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		inst     serverInstruction
		status   int
		expected []byte
	}{
		{
			name:     "expect status 200",
			inst:     serverInstruction{StatusCode: 200},
			status:   200,
			expected: []byte{},
		},
		{
			name: "expect status 404",
			inst: serverInstruction{
				StatusCode: 404,
				Body: []bodyChunk{
					{
						Data: []byte("the thingy was not in the place"),
					},
				},
			},
			status:   404,
			expected: []byte("the thingy was not in the place"),
		},
		{
			name: "expect status 503",
			inst: serverInstruction{
				StatusCode: 503,
				Body: []bodyChunk{
					{
						Data: []byte("ain't not service in these parts"),
					},
				},
			},
			status:   503,
			expected: []byte("ain't not service in these parts"),
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cl := &Client{} // Must use zero value!

			env, err := cl.Do(context.Background(), serviceFor(httpServer), testCase.inst.toRequest(request.POST))

			require.NoError(t, err)
			require.NotNil(t, env)
			assert.Equal(t, testCase.status, env.StatusCode())
			assert.Equal(t, testCase.expected, env.Body())
		})
	}
}

func testClientServers(t *testing.T) {
	t.Parallel()

	for _, server := range servers {
		server := server
		t.Run(serverName(server), func(t *testing.T) {
			t.Parallel()

			cl := &Client{HTTPDoer: server.Client(), TimeoutPolicy: timeout.Fixed(5 * time.Second)}
			inst := serverInstruction{
				StatusCode: 202,
				Body: []bodyChunk{
					{Data: []byte("accepted")},
					{Pause: 10 * time.Millisecond, Data: []byte(" later")},
				},
			}

			env, err := cl.Do(context.Background(), serviceFor(server), inst.toRequest(request.PUT))

			require.NoError(t, err)
			assert.Equal(t, 202, env.StatusCode())
			assert.Equal(t, "accepted later", string(env.Body()))
			assert.Equal(t, "14", env.Header().Get("Content-Length"))
		})
	}
}

func testClientSlowBody(t *testing.T) {
	t.Parallel()

	cl := &Client{Handlers: &HandlerGroup{}, TimeoutPolicy: timeout.Fixed(50 * time.Millisecond)}
	tr := cl.addTraceHandlers()
	inst := serverInstruction{
		StatusCode: 200,
		Body: []bodyChunk{
			{Pause: 2 * time.Second, Data: []byte("a")},
			{Data: []byte("b")},
		},
	}

	env, err := cl.Do(context.Background(), serviceFor(httpServer), inst.toRequest(request.POST))

	assert.Nil(t, env)
	var re *request.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, request.Transport, re.Kind)
	assert.True(t, re.Timeout())
	assert.Equal(t, []string{
		"BeforeExecutionStart",
		"BeforeDispatch",
		"BeforeReadBody",
		"AfterDispatchTimeout",
		"AfterDispatch",
		"AfterExecutionEnd",
	}, tr.calls)
}

func testClientCold(t *testing.T) {
	t.Parallel()

	var resolved int32
	mockDoer := newMockHTTPDoer(t)
	cl := &Client{HTTPDoer: mockDoer}
	svc := &BasicService{
		Base: "cold.example.com",
		Source: HeaderSourceFunc(func(context.Context) (http.Header, error) {
			atomic.AddInt32(&resolved, 1)
			return nil, nil
		}),
	}

	tk := cl.Task(context.Background(), svc, BasicRequest{})
	sub := &demandless{}
	tk.Subscribe(sub)
	sub.s.Request(0)

	assert.Equal(t, task.Idle, sub.s.State())
	assert.Never(t, func() bool { return atomic.LoadInt32(&resolved) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	mockDoer.AssertNotCalled(t, "Do", mock.Anything)
}

func testClientAssemblyFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("token service down")
	mockDoer := newMockHTTPDoer(t)
	cl := &Client{HTTPDoer: mockDoer, Handlers: &HandlerGroup{}}
	tr := cl.addTraceHandlers()
	var last *request.Execution
	cl.Handlers.PushBack(AfterExecutionEnd, HandlerFunc(func(_ Event, e *request.Execution) {
		last = e
	}))
	svc := &BasicService{Base: "api.example.com", Source: failingSource(cause)}

	env, err := cl.Do(context.Background(), svc, BasicRequest{})

	assert.Nil(t, env)
	assert.ErrorIs(t, err, request.ErrPreparation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"BeforeExecutionStart", "AfterExecutionEnd"}, tr.calls)
	require.NotNil(t, last)
	assert.Nil(t, last.Descriptor)
	assert.Nil(t, last.Request)
	assert.Same(t, err, last.Err)
	mockDoer.AssertNotCalled(t, "Do", mock.Anything)
}

func testClientTransportFailure(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		err    error
		errMsg string
	}{
		{
			name:   "url.Error",
			err:    &url.Error{Op: "Put", URL: "http://t.example.com/x", Err: syscall.ECONNREFUSED},
			errMsg: `httptask/request: transport: Put "http://t.example.com/x": ` + syscall.ECONNREFUSED.Error(),
		},
		{
			name:   "plain",
			err:    syscall.ECONNRESET,
			errMsg: `httptask/request: transport: Put "http://t.example.com/x": ` + syscall.ECONNRESET.Error(),
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			mockDoer := newMockHTTPDoer(t)
			cl := &Client{HTTPDoer: mockDoer, Handlers: &HandlerGroup{}}
			tr := cl.addTraceHandlers()
			mockDoer.On("Do", mock.Anything).Return(nil, testCase.err).Once()

			env, err := cl.Do(context.Background(), &BasicService{Base: "t.example.com"},
				BasicRequest{Verb: request.PUT, Path: []string{"x"}})

			assert.Nil(t, env)
			assert.ErrorIs(t, err, request.ErrTransport)
			assert.EqualError(t, err, testCase.errMsg)
			assert.Equal(t, []string{"BeforeExecutionStart", "BeforeDispatch", "AfterDispatch", "AfterExecutionEnd"}, tr.calls)
			mockDoer.AssertExpectations(t)
		})
	}
}

func testClientDispatchTimeout(t *testing.T) {
	t.Parallel()

	mockDoer := newMockHTTPDoer(t)
	mockTimeoutPolicy := newMockTimeoutPolicy(t)
	cl := &Client{HTTPDoer: mockDoer, TimeoutPolicy: mockTimeoutPolicy, Handlers: &HandlerGroup{}}
	tr := cl.addTraceHandlers()
	mockTimeoutPolicy.On("Timeout", mock.Anything).Return(5 * time.Millisecond).Once()
	mockDoer.On("Do", mock.Anything).Run(func(args mock.Arguments) {
		r := args.Get(0).(*http.Request)
		<-r.Context().Done()
	}).Return(nil, context.DeadlineExceeded).Once()

	env, err := cl.Do(context.Background(), &BasicService{Base: "slow.example.com"}, BasicRequest{})

	assert.Nil(t, env)
	var re *request.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, request.Transport, re.Kind)
	assert.True(t, re.Timeout())
	assert.Equal(t, []string{
		"BeforeExecutionStart",
		"BeforeDispatch",
		"AfterDispatchTimeout",
		"AfterDispatch",
		"AfterExecutionEnd",
	}, tr.calls)
	mockDoer.AssertExpectations(t)
	mockTimeoutPolicy.AssertExpectations(t)
}

func testClientBodyError(t *testing.T) {
	t.Parallel()

	readErr := errors.New("truncated")
	mockDoer := newMockHTTPDoer(t)
	mockReadCloser := newMockReadCloser(t)
	cl := &Client{HTTPDoer: mockDoer, Handlers: &HandlerGroup{}}
	tr := cl.addTraceHandlers()
	mockDoer.On("Do", mock.Anything).Return(&http.Response{StatusCode: 200, Body: mockReadCloser}, nil).Once()
	mockReadCloser.On("Read", mock.Anything).Return(0, readErr).Once()
	mockReadCloser.On("Close").Return(nil).Once()

	env, err := cl.Do(context.Background(), &BasicService{Base: "b.example.com"}, BasicRequest{})

	assert.Nil(t, env)
	assert.ErrorIs(t, err, request.ErrTransport)
	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, []string{
		"BeforeExecutionStart",
		"BeforeDispatch",
		"BeforeReadBody",
		"AfterDispatch",
		"AfterExecutionEnd",
	}, tr.calls)
	mockDoer.AssertExpectations(t)
	mockReadCloser.AssertExpectations(t)
}

func testClientCancel(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	ended := make(chan *request.Execution, 1)
	mockDoer := newMockHTTPDoer(t)
	cl := &Client{HTTPDoer: mockDoer, TimeoutPolicy: timeout.Infinite, Handlers: &HandlerGroup{}}
	cl.Handlers.PushBack(AfterExecutionEnd, HandlerFunc(func(_ Event, e *request.Execution) {
		ended <- e
	}))
	mockDoer.On("Do", mock.Anything).Run(func(args mock.Arguments) {
		r := args.Get(0).(*http.Request)
		close(started)
		<-r.Context().Done()
	}).Return(nil, context.Canceled).Once()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	env, err := cl.Do(ctx, &BasicService{Base: "c.example.com"}, BasicRequest{})

	assert.Nil(t, env)
	assert.Same(t, context.Canceled, err)
	select {
	case e := <-ended:
		assert.True(t, e.Canceled())
		assert.False(t, e.Timeout())
		assert.Nil(t, e.Envelope)
	case <-time.After(5 * time.Second):
		require.Fail(t, "execution did not end")
	}
	mockDoer.AssertExpectations(t)
}

func testClientDispatch(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		mockDoer := newMockHTTPDoer(t)
		cl := &Client{HTTPDoer: mockDoer}
		d, err := request.New("https://d.example.com/things")
		require.NoError(t, err)
		mockDoer.On("Do", mock.MatchedBy(func(r *http.Request) bool {
			return r.Method == "HEAD" && r.URL.String() == "https://d.example.com/things"
		})).Return(&http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}, nil).Once()

		env, err := cl.Dispatch(context.Background(), d.WithMethod(request.HEAD)).Await(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 200, env.StatusCode())
		assert.NotNil(t, env.Body())
		assert.Equal(t, 0, env.Len())
		mockDoer.AssertExpectations(t)
	})
	t.Run("not wire-ready", func(t *testing.T) {
		mockDoer := newMockHTTPDoer(t)
		cl := &Client{HTTPDoer: mockDoer}
		d, err := request.New("ftp://d.example.com/things")
		require.NoError(t, err)

		env, err := cl.Dispatch(context.Background(), d).Await(context.Background())

		assert.Nil(t, env)
		assert.ErrorIs(t, err, request.ErrValidation)
		mockDoer.AssertNotCalled(t, "Do", mock.Anything)
	})
	t.Run("nil descriptor", func(t *testing.T) {
		assert.PanicsWithValue(t, "httptask: nil descriptor", func() {
			(&Client{}).Dispatch(context.Background(), nil)
		})
	})
}

func testClientPanic(t *testing.T) {
	t.Parallel()

	mockDoer := newMockHTTPDoer(t)
	mockReadCloser := newMockReadCloser(t)
	cl := &Client{HTTPDoer: mockDoer, Handlers: &HandlerGroup{}}
	cl.Handlers.PushBack(BeforeReadBody, HandlerFunc(func(Event, *request.Execution) {
		panic("handler panic")
	}))
	mockDoer.On("Do", mock.Anything).Return(&http.Response{StatusCode: 200, Body: mockReadCloser}, nil).Once()
	mockReadCloser.On("Close").Return(nil).Once()
	d, err := request.New("http://p.example.com")
	require.NoError(t, err)

	assert.PanicsWithValue(t, "handler panic", func() {
		cl.send(context.Background(), &request.Execution{Descriptor: d}, cl.Handlers)
	})
	mockDoer.AssertExpectations(t)
	mockReadCloser.AssertExpectations(t)
}

func testClientCloseIdleConnections(t *testing.T) {
	t.Run("HTTPDoer does not implement IdleCloser", func(t *testing.T) {
		mockDoer := newMockHTTPDoer(t)
		cl := &Client{HTTPDoer: mockDoer}
		cl.CloseIdleConnections()
		mockDoer.AssertNotCalled(t, "CloseIdleConnections")
	})
	t.Run("HTTPDoer implements IdleCloser", func(t *testing.T) {
		mockDoer := newMockHTTPDoerWithCloseIdleConnections(t)
		mockDoer.On("CloseIdleConnections").Once()
		cl := &Client{HTTPDoer: mockDoer}
		cl.CloseIdleConnections()
		mockDoer.AssertExpectations(t)
	})
}

type demandless struct {
	s task.Subscription
}

func (d *demandless) OnSubscribe(s task.Subscription) { d.s = s }
func (d *demandless) OnNext(*request.Envelope)         {}
func (d *demandless) OnError(error)                    {}
func (d *demandless) OnComplete()                      {}

type mockHTTPDoer struct {
	mock.Mock
}

func newMockHTTPDoer(t *testing.T) *mockHTTPDoer {
	m := &mockHTTPDoer{}
	m.Test(t)
	return m
}

func (m *mockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	err := args.Error(1)
	if resp, ok := args.Get(0).(*http.Response); ok {
		return resp, err
	}
	return nil, err
}

type mockHTTPDoerWithCloseIdleConnections struct {
	mockHTTPDoer
}

func newMockHTTPDoerWithCloseIdleConnections(t *testing.T) *mockHTTPDoerWithCloseIdleConnections {
	m := &mockHTTPDoerWithCloseIdleConnections{}
	m.Test(t)
	return m
}

func (m *mockHTTPDoerWithCloseIdleConnections) CloseIdleConnections() {
	m.Called()
}

type mockTimeoutPolicy struct {
	mock.Mock
}

func newMockTimeoutPolicy(t *testing.T) *mockTimeoutPolicy {
	m := &mockTimeoutPolicy{}
	m.Test(t)
	return m
}

func (m *mockTimeoutPolicy) Timeout(e *request.Execution) time.Duration {
	args := m.Called(e)
	return args.Get(0).(time.Duration)
}

type trace struct {
	calls []string
}

func (c *Client) addTraceHandlers() *trace {
	tr := &trace{}
	f := func(evt Event, _ *request.Execution) {
		tr.calls = append(tr.calls, evt.Name())
	}
	h := HandlerFunc(f)
	for _, evt := range Events() {
		c.Handlers.PushBack(evt, h)
	}
	return tr
}

type mockReadCloser struct {
	mock.Mock
}

func newMockReadCloser(t *testing.T) *mockReadCloser {
	m := &mockReadCloser{}
	m.Test(t)
	return m
}

func (m *mockReadCloser) Read(p []byte) (n int, err error) {
	args := m.Called(p)
	n = args.Int(0)
	err = args.Error(1)
	return
}

func (m *mockReadCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}
