// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

const nilPrepMsg = "httptask/request: nil preparation"

// A Descriptor is an immutable description of one outbound request.
//
// Every With method returns a new Descriptor and leaves its receiver
// untouched, so a Descriptor may be shared freely between goroutines.
// Descriptors must be created with New; the zero value is not usable.
//
// A Descriptor is wire-ready once all assembly steps have been applied
// and Validate returns nil. The wire form is obtained with ToRequest.
type Descriptor struct {
	method  Method
	url     *urlpkg.URL
	header  http.Header
	body    []byte
	prepare []func(*http.Request)
}

// A Param is one query parameter. A slice of Param preserves the order
// in which parameters are written to the query string.
type Param struct {
	Key   string
	Value string
}

// ParamsOf converts url.Values into a slice of Param ordered by key.
// Multiple values for a key keep their relative order.
func ParamsOf(v urlpkg.Values) []Param {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var params []Param
	for _, k := range keys {
		for _, x := range v[k] {
			params = append(params, Param{Key: k, Value: x})
		}
	}
	return params
}

// New returns a new GET Descriptor for the given target.
//
// Parameter target may be a string, a *url.URL, or any fmt.Stringer
// whose String method yields a URL. A string without a scheme
// separator, such as "api.example.com/v1", is read as a network-path
// reference so that the host is recognized; its scheme is then chosen
// later with WithScheme.
//
// New fails with an InvalidURL Error if the target cannot be parsed or
// does not name a host.
func New(target interface{}) (*Descriptor, error) {
	var u *urlpkg.URL
	var err error
	switch x := target.(type) {
	case string:
		u, err = parseTarget(x)
	case *urlpkg.URL:
		if x == nil {
			return nil, &Error{Kind: InvalidURL, Op: "New", Err: errors.New("nil URL")}
		}
		u2 := *x
		u = &u2
	case fmt.Stringer:
		u, err = parseTarget(x.String())
	default:
		err = fmt.Errorf("unsupported target type %T", target)
	}
	if err != nil {
		return nil, &Error{Kind: InvalidURL, Op: "New", Err: err}
	}
	if u.Host == "" {
		return nil, &Error{Kind: InvalidURL, Op: "New", URL: u.String(), Err: errors.New("missing host")}
	}
	u.Host = removeEmptyPort(u.Host)
	return &Descriptor{
		method: GET,
		url:    u,
		header: make(http.Header),
	}, nil
}

func parseTarget(s string) (*urlpkg.URL, error) {
	if s == "" {
		return nil, errors.New("empty URL")
	}
	if !strings.Contains(s, "://") && !strings.HasPrefix(s, "//") {
		s = "//" + s
	}
	return urlpkg.Parse(s)
}

func (d *Descriptor) clone() *Descriptor {
	d2 := new(Descriptor)
	*d2 = *d
	u := *d.url
	d2.url = &u
	return d2
}

// WithScheme returns a copy of d with the URL scheme replaced. Only
// the scheme changes; everything after the scheme separator is kept.
func (d *Descriptor) WithScheme(scheme string) *Descriptor {
	d2 := d.clone()
	d2.url.Scheme = scheme
	return d2
}

// WithMethod returns a copy of d with the method replaced. The method
// is not checked here; an invalid token is reported by Validate.
func (d *Descriptor) WithMethod(m Method) *Descriptor {
	d2 := d.clone()
	d2.method = m
	return d2
}

// WithRoute returns a copy of d with the given path segments appended
// to the URL path, in order. Segments are unescaped path text; leading
// and trailing slashes are trimmed and empty segments are skipped. A
// slash inside a segment separates path elements. The escaping of the
// existing path is kept as is.
func (d *Descriptor) WithRoute(segments ...string) *Descriptor {
	d2 := d.clone()
	p := d.url.EscapedPath()
	appended := false
	for _, seg := range segments {
		seg = strings.Trim(seg, "/")
		if seg == "" {
			continue
		}
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		p += escapeSegment(seg)
		appended = true
	}
	if !appended {
		return d2
	}
	path, err := urlpkg.PathUnescape(p)
	if err != nil {
		// EscapedPath and PathEscape only produce valid escapes.
		panic("httptask/request: " + err.Error())
	}
	d2.url.Path = path
	d2.url.RawPath = p
	return d2
}

func escapeSegment(seg string) string {
	parts := strings.Split(seg, "/")
	for i := range parts {
		parts[i] = urlpkg.PathEscape(parts[i])
	}
	return strings.Join(parts, "/")
}

// WithQuery returns a copy of d with the given parameters URL-encoded
// and appended to the query string, after any query already present.
//
// WithQuery fails with an Encoding Error, and returns a nil
// Descriptor, if any parameter has an empty key, or a key or value
// which is not valid UTF-8 or contains a NUL byte.
func (d *Descriptor) WithQuery(params ...Param) (*Descriptor, error) {
	var b strings.Builder
	b.WriteString(d.url.RawQuery)
	for _, p := range params {
		if err := checkParam(p); err != nil {
			return nil, &Error{Kind: Encoding, Op: "WithQuery", URL: d.url.String(), Err: err}
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(urlpkg.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(urlpkg.QueryEscape(p.Value))
	}
	d2 := d.clone()
	d2.url.RawQuery = b.String()
	d2.url.ForceQuery = false
	return d2, nil
}

func checkParam(p Param) error {
	if p.Key == "" {
		return errors.New("empty query key")
	}
	if !utf8.ValidString(p.Key) || !utf8.ValidString(p.Value) {
		return fmt.Errorf("query parameter %q: invalid UTF-8", p.Key)
	}
	if strings.IndexByte(p.Key, 0) >= 0 || strings.IndexByte(p.Value, 0) >= 0 {
		return fmt.Errorf("query parameter %q: NUL byte", p.Key)
	}
	return nil
}

// WithHeader returns a copy of d with h merged into its header.
//
// Keys are compared case-insensitively. Every key present in h
// replaces that key in d, while keys absent from h are kept. Several
// values for one key within h are all retained. Applying header tiers
// in ascending order of precedence therefore gives the highest tier
// the last word on each key.
func (d *Descriptor) WithHeader(h http.Header) *Descriptor {
	d2 := d.clone()
	d2.header = d.header.Clone()
	if d2.header == nil {
		d2.header = make(http.Header, len(h))
	}
	for k := range h {
		delete(d2.header, http.CanonicalHeaderKey(k))
	}
	for k, vs := range h {
		ck := http.CanonicalHeaderKey(k)
		d2.header[ck] = append(d2.header[ck], vs...)
	}
	return d2
}

// WithBody returns a copy of d carrying the encoded body. If the body
// is non-empty the Content-Type and Content-Length headers are
// derived from it and replace any existing values.
//
// WithBody fails with an Encoding Error, and returns a nil
// Descriptor, if the payload cannot be serialized.
func (d *Descriptor) WithBody(b Body) (*Descriptor, error) {
	p, contentType, err := b.Encode()
	if err != nil {
		return nil, &Error{Kind: Encoding, Op: "WithBody", URL: d.url.String(), Err: err}
	}
	d2 := d.clone()
	d2.body = p
	if p == nil {
		return d2, nil
	}
	d2.header = d.header.Clone()
	if d2.header == nil {
		d2.header = make(http.Header)
	}
	if contentType != "" {
		d2.header.Set("Content-Type", contentType)
	}
	d2.header.Set("Content-Length", strconv.Itoa(len(p)))
	return d2, nil
}

// WithPreparation returns a copy of d which applies fn to every wire
// request produced by ToRequest. Preparations run in the order they
// were added, after all other fields are set. fn may not be nil.
func (d *Descriptor) WithPreparation(fn func(*http.Request)) *Descriptor {
	if fn == nil {
		panic(nilPrepMsg)
	}
	d2 := d.clone()
	d2.prepare = append(d.prepare[:len(d.prepare):len(d.prepare)], fn)
	return d2
}

// Method returns the request method.
func (d *Descriptor) Method() Method {
	return d.method
}

// URL returns a copy of the absolute request URL.
func (d *Descriptor) URL() *urlpkg.URL {
	u := *d.url
	return &u
}

// Header returns a copy of the request header.
func (d *Descriptor) Header() http.Header {
	h := d.header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	return h
}

// Body returns a copy of the encoded request body, or nil if there is
// no body.
func (d *Descriptor) Body() []byte {
	if d.body == nil {
		return nil
	}
	return bytes.Clone(d.body)
}

// String returns the method and URL, for example
// "POST https://api.example.com/users".
func (d *Descriptor) String() string {
	return d.method.String() + " " + d.url.String()
}

// Validate reports whether d is wire-ready. It returns a Validation
// Error if the scheme is not one of http, https, ws, or wss, or if the
// method is not a valid token.
func (d *Descriptor) Validate() error {
	switch d.url.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return &Error{Kind: Validation, Op: "Validate", URL: d.url.String(),
			Err: fmt.Errorf("unsupported scheme %q", d.url.Scheme)}
	}
	if !d.method.Valid() {
		return &Error{Kind: Validation, Op: "Validate", URL: d.url.String(),
			Err: fmt.Errorf("invalid method %q", string(d.method))}
	}
	return nil
}

// ToRequest creates the wire request described by d. The context of
// the new request is set to ctx, which may not be nil.
//
// Each call returns a fresh request whose URL and Header are copies,
// so preparations and the transport may modify them freely.
func (d *Descriptor) ToRequest(ctx context.Context) *http.Request {
	r := template.WithContext(ctx)
	r.Method = d.method.String()
	r.URL = d.URL()
	r.Header = d.Header()
	if len(d.body) > 0 {
		body := d.body
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	r.Host = r.URL.Host
	for _, fn := range d.prepare {
		fn(r)
	}
	return r
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort is lifted verbatim from net/http/http.go
//
// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
