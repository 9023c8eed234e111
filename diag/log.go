// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package diag

import (
	"github.com/gogama/httptask"
	"github.com/gogama/httptask/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogHandler returns an event handler which logs executions to
// logger. Install it for any of the events below; it ignores the rest.
//
// At BeforeDispatch and AfterDispatch it logs the request and response
// traces rendered by f at debug level. The request trace shows the wire
// request as it stands when the handler runs, so install the handler
// after any handler which modifies the request. At AfterExecutionEnd it logs a
// one-line summary: info level on success, debug level if the
// execution was cancelled, and warn level on any other failure.
//
// A nil logger is replaced by a no-op logger and a nil formatter by a
// zero-value Formatter.
func NewLogHandler(logger *zap.Logger, f *Formatter) httptask.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if f == nil {
		f = &Formatter{}
	}
	return &logHandler{logger: logger, f: f}
}

type logHandler struct {
	logger *zap.Logger
	f      *Formatter
}

func (h *logHandler) Handle(evt httptask.Event, e *request.Execution) {
	switch evt {
	case httptask.BeforeDispatch:
		if ce := h.logger.Check(zapcore.DebugLevel, "dispatching request"); ce != nil {
			var trace string
			if e.Request != nil {
				trace = h.f.FormatHTTPRequest(e.Request)
			} else {
				trace = h.f.FormatRequest(e.Descriptor)
			}
			ce.Write(zap.String("execution_id", e.ID), zap.String("trace", trace))
		}
	case httptask.AfterDispatch:
		if e.Envelope == nil {
			return
		}
		if ce := h.logger.Check(zapcore.DebugLevel, "received response"); ce != nil {
			ce.Write(zap.String("execution_id", e.ID), zap.String("trace", h.f.FormatResponse(e.Envelope)))
		}
	case httptask.AfterExecutionEnd:
		h.summarize(e)
	}
}

func (h *logHandler) summarize(e *request.Execution) {
	fields := []zap.Field{
		zap.String("execution_id", e.ID),
		zap.Duration("duration", e.Duration()),
	}
	if e.Descriptor != nil {
		fields = append(fields,
			zap.String("method", e.Descriptor.Method().String()),
			zap.String("url", e.Descriptor.URL().String()))
	}
	if e.Envelope != nil {
		fields = append(fields, zap.Int("status", e.Envelope.StatusCode()))
	}

	switch {
	case e.Err == nil:
		h.logger.Info("request completed", fields...)
	case e.Canceled():
		h.logger.Debug("request cancelled", append(fields, zap.Error(e.Err))...)
	default:
		fields = append(fields,
			zap.Stringer("kind", request.KindOf(e.Err)),
			zap.Bool("timeout", e.Timeout()),
			zap.Error(e.Err))
		h.logger.Warn("request failed", fields...)
	}
}
