// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"encoding/json"
	"io"
)

// Content types derived by Body.Encode when no explicit ContentType is
// given.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeText   = "text/plain; charset=utf-8"
	ContentTypeBinary = "application/octet-stream"
)

// A Body is an optional request payload plus a content type hint.
type Body struct {
	// Payload is the value to serialize. It may be nil, a string, a
	// []byte, an io.Reader, an io.ReadCloser, or any value which can
	// be marshalled by encoding/json.
	Payload interface{}

	// ContentType is sent as the Content-Type header. If empty, a type
	// is derived from the payload kind.
	ContentType string
}

// Encode serializes the payload and returns the wire bytes together
// with the effective content type.
//
// The conversion logic is:
//
// • If Payload is nil, a nil byte slice, an empty content type and no
// error is returned.
//
// • If Payload is a string, its bytes are returned with a text content
// type.
//
// • If Payload is a []byte, it is returned as-is with a binary
// content type.
//
// • If Payload is an io.Reader or io.ReadCloser, the whole contents are
// read (and the reader closed if it implements io.Closer) and returned
// with a binary content type.
//
// • Otherwise, Payload is marshalled with encoding/json and returned
// with a JSON content type.
//
// An explicit ContentType always overrides the derived one. Errors are
// returned unwrapped; the Descriptor wraps them into an Encoding Error.
func (b Body) Encode() ([]byte, string, error) {
	p, derived, err := payloadBytes(b.Payload)
	if err != nil {
		return nil, "", err
	}
	if b.Payload == nil {
		return nil, "", nil
	}
	if b.ContentType != "" {
		return p, b.ContentType, nil
	}
	return p, derived, nil
}

func payloadBytes(payload interface{}) ([]byte, string, error) {
	switch x := payload.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(x), ContentTypeText, nil
	case []byte:
		return x, ContentTypeBinary, nil
	case io.ReadCloser:
		p, err := io.ReadAll(x)
		if err != nil {
			return nil, "", err
		}
		err = x.Close()
		if err != nil {
			return nil, "", err
		}
		return p, ContentTypeBinary, nil
	case io.Reader:
		return payloadBytes(io.NopCloser(x))
	default:
		p, err := json.Marshal(x)
		if err != nil {
			return nil, "", err
		}
		return p, ContentTypeJSON, nil
	}
}
