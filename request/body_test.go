// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBody_Encode(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		testCases := []struct {
			name        string
			body        Body
			expected    []byte
			contentType string
		}{
			{"nil", Body{}, nil, ""},
			{"nil with type", Body{ContentType: "text/html"}, nil, ""},
			{"string", Body{Payload: "foo"}, []byte("foo"), ContentTypeText},
			{"bytes", Body{Payload: []byte("bar")}, []byte("bar"), ContentTypeBinary},
			{"reader", Body{Payload: strings.NewReader("baz")}, []byte("baz"), ContentTypeBinary},
			{"read closer", Body{Payload: io.NopCloser(bytes.NewReader([]byte("qux")))}, []byte("qux"), ContentTypeBinary},
			{"json", Body{Payload: struct {
				Name string `json:"name"`
			}{"a"}}, []byte(`{"name":"a"}`), ContentTypeJSON},
			{"json number", Body{Payload: 10}, []byte("10"), ContentTypeJSON},
			{"override", Body{Payload: "<p/>", ContentType: "text/html"}, []byte("<p/>"), "text/html"},
		}
		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				b, contentType, err := testCase.body.Encode()
				assert.NoError(t, err)
				assert.Equal(t, testCase.expected, b)
				assert.Equal(t, testCase.contentType, contentType)
			})
		}
	})
	t.Run("reader errors", func(t *testing.T) {
		expectedErr := errors.New("ham")
		t.Run("Read", func(t *testing.T) {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.Anything).Return(10, expectedErr).Once()
			b, contentType, err := Body{Payload: m}.Encode()
			assert.Nil(t, b)
			assert.Empty(t, contentType)
			assert.Same(t, expectedErr, err)
			m.AssertExpectations(t)
		})
		t.Run("Close", func(t *testing.T) {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.Anything).Return(0, io.EOF).Once()
			m.On("Close").Return(expectedErr).Once()
			b, _, err := Body{Payload: m}.Encode()
			assert.Nil(t, b)
			assert.Same(t, expectedErr, err)
			m.AssertExpectations(t)
		})
	})
}

type mockReadCloser struct {
	mock.Mock
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
