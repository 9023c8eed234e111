// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package diag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls what a Formatter includes in a trace.
//
// An example YAML document:
//
//	exclude_headers: false
//	exclude_body: false
//	truncate_body_at: 4096
//	redact_headers:
//	  - Authorization
//	  - X-Api-Key
type Config struct {
	// ExcludeHeaders leaves headers out of the trace.
	ExcludeHeaders bool `yaml:"exclude_headers"`
	// ExcludeBody leaves bodies out of the trace.
	ExcludeBody bool `yaml:"exclude_body"`
	// TruncateBodyAt, if not nil, is the maximum number of bytes of
	// rendered body included in the trace.
	TruncateBodyAt *int `yaml:"truncate_body_at"`
	// RedactHeaders lists headers whose values are replaced by a
	// placeholder. Names are matched case-insensitively.
	RedactHeaders []string `yaml:"redact_headers"`
}

// DefaultConfig returns a Config which includes headers and full
// bodies, and redacts the usual credential-carrying headers.
func DefaultConfig() Config {
	return Config{
		RedactHeaders: []string{
			"Authorization",
			"Proxy-Authorization",
			"Cookie",
			"Set-Cookie",
		},
	}
}

// ParseConfig decodes a YAML document into a Config. Keys absent from
// the document keep their DefaultConfig values, and an empty document
// yields DefaultConfig. Unknown keys are an error.
func ParseConfig(b []byte) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("httptask/diag: parse config: %w", err)
	}
	if c.TruncateBodyAt != nil && *c.TruncateBodyAt < 0 {
		return Config{}, fmt.Errorf("httptask/diag: parse config: negative truncate_body_at %d", *c.TruncateBodyAt)
	}
	return c, nil
}

// LoadConfig reads the named YAML file and decodes it with
// ParseConfig.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("httptask/diag: load config: %w", err)
	}
	return ParseConfig(b)
}
