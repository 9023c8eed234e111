// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package diag

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/gogama/httptask/request"
)

const redacted = "<redacted>"

// A Formatter renders traces according to a Config which may be
// replaced at any time. The zero value uses DefaultConfig. A Formatter
// is safe for concurrent use by multiple goroutines.
type Formatter struct {
	cfg atomic.Pointer[Config]
}

// NewFormatter returns a Formatter using c.
func NewFormatter(c Config) *Formatter {
	f := &Formatter{}
	f.SetConfig(c)
	return f
}

// SetConfig replaces the configuration. Formatting calls already in
// progress finish with the configuration they started with.
func (f *Formatter) SetConfig(c Config) {
	c.RedactHeaders = append([]string(nil), c.RedactHeaders...)
	if c.TruncateBodyAt != nil {
		n := *c.TruncateBodyAt
		c.TruncateBodyAt = &n
	}
	f.cfg.Store(&c)
}

// Config returns the current configuration.
func (f *Formatter) Config() Config {
	if c := f.cfg.Load(); c != nil {
		return *c
	}
	return DefaultConfig()
}

// FormatRequest renders the method, URL, headers, and body of d. A nil
// descriptor renders as an empty string.
func (f *Formatter) FormatRequest(d *request.Descriptor) string {
	var b strings.Builder
	f.writeRequest(&b, f.Config(), d)
	return b.String()
}

// FormatHTTPRequest renders the method, URL, headers, and body of the
// wire request r as it will be sent, including changes made by
// preparations and handlers. The body is read through r.GetBody and is
// omitted if GetBody is nil. A nil request renders as an empty string.
func (f *Formatter) FormatHTTPRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	c := f.Config()
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var u string
	if r.URL != nil {
		u = r.URL.String()
	}
	var body []byte
	if !c.ExcludeBody && r.GetBody != nil {
		if rc, err := r.GetBody(); err == nil {
			body, _ = io.ReadAll(rc)
			_ = rc.Close()
		}
	}
	var b strings.Builder
	b.WriteString("--> ")
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(u)
	b.WriteByte('\n')
	writeHeaderAndBody(&b, c, r.Header, body)
	return b.String()
}

// FormatResponse renders the status, headers, and body of env. A nil
// envelope renders as an empty string.
func (f *Formatter) FormatResponse(env *request.Envelope) string {
	var b strings.Builder
	f.writeResponse(&b, f.Config(), env)
	return b.String()
}

// Format renders d followed by env, separated by a blank line. Either
// may be nil.
func (f *Formatter) Format(d *request.Descriptor, env *request.Envelope) string {
	c := f.Config()
	var b strings.Builder
	f.writeRequest(&b, c, d)
	if d != nil && env != nil {
		b.WriteByte('\n')
	}
	f.writeResponse(&b, c, env)
	return b.String()
}

func (f *Formatter) writeRequest(b *strings.Builder, c Config, d *request.Descriptor) {
	if d == nil {
		return
	}
	b.WriteString("--> ")
	b.WriteString(d.String())
	b.WriteByte('\n')
	writeHeaderAndBody(b, c, d.Header(), d.Body())
}

func (f *Formatter) writeResponse(b *strings.Builder, c Config, env *request.Envelope) {
	if env == nil {
		return
	}
	b.WriteString("<-- ")
	b.WriteString(env.Status())
	b.WriteByte('\n')
	writeHeaderAndBody(b, c, env.Header(), env.Body())
}

func writeHeaderAndBody(b *strings.Builder, c Config, h http.Header, body []byte) {
	if !c.ExcludeHeaders {
		writeHeader(b, h, c.RedactHeaders)
	}
	if !c.ExcludeBody && len(body) > 0 {
		b.WriteByte('\n')
		b.WriteString(renderBody(body, c.TruncateBodyAt))
		b.WriteByte('\n')
	}
}

func writeHeader(b *strings.Builder, h http.Header, redact []string) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.Join(h[k], ", ")
		if isRedacted(k, redact) {
			v = redacted
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteByte('\n')
	}
}

func isRedacted(key string, redact []string) bool {
	for _, r := range redact {
		if strings.EqualFold(key, r) {
			return true
		}
	}
	return false
}

func renderBody(body []byte, truncateAt *int) string {
	var s string
	var indented bytes.Buffer
	if json.Valid(body) && json.Indent(&indented, body, "", "  ") == nil {
		s = indented.String()
	} else if utf8.Valid(body) {
		s = string(body)
	} else {
		return "<" + strconv.Itoa(len(body)) + " bytes>"
	}

	if truncateAt == nil || len(s) <= *truncateAt {
		return s
	}
	n := *truncateAt
	if n < 0 {
		n = 0
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "... (" + strconv.Itoa(len(s)-n) + " bytes truncated)"
}
