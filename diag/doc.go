// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package diag renders request descriptors and response envelopes as
human-readable traces, and logs executions with a zap logger.

A Formatter reads its Config at format time, so the configuration may be
replaced at any point, for example after reloading a YAML file:

	cfg, err := diag.LoadConfig("/etc/myapp/trace.yaml")
	if err != nil {
		return err
	}
	f := diag.NewFormatter(cfg)
	handlers.PushBack(httptask.BeforeDispatch, diag.NewLogHandler(logger, f))

Formatting never fails. Sensitive headers are redacted, bodies may be
truncated or left out, and bodies which are not text are summarized by
their length.
*/
package diag
