// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics records Prometheus metrics about executions.
//
// Install the handler returned by New for the AfterExecutionEnd event:
//
//	h, err := metrics.New(prometheus.DefaultRegisterer, "myapp")
//	if err != nil {
//		return err
//	}
//	handlers.PushBack(httptask.AfterExecutionEnd, h)
package metrics

import (
	"errors"
	"strings"

	"github.com/gogama/httptask"
	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/transient"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values. Failures are labelled with the lower-case
// request.Kind name with spaces replaced by underscores, for example
// "invalid_url" or "transport".
const (
	OutcomeSuccess  = "success"
	OutcomeCanceled = "canceled"
	OutcomeTimeout  = "timeout"
)

// A Handler counts executions and observes their durations. It only
// acts on AfterExecutionEnd.
type Handler struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates a Handler and registers its collectors with reg. The
// metric names are prefixed with namespace if it is not empty.
//
// If reg is nil, the collectors are created but not registered.
func New(reg prometheus.Registerer, namespace string) (*Handler, error) {
	h := &Handler{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "httptask",
				Name:      "executions_total",
				Help:      "Total number of executions by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "httptask",
				Name:      "execution_duration_seconds",
				Help:      "Execution duration in seconds, from start of assembly to end of dispatch",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method"},
		),
	}

	if reg == nil {
		return h, nil
	}
	if err := register(reg, &h.executions); err != nil {
		return nil, err
	}
	if err := register(reg, &h.duration); err != nil {
		return nil, err
	}

	return h, nil
}

// register registers *c with reg. If an identical collector is already
// registered, *c is replaced by it so that several Handlers built with
// the same namespace share their series.
func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	err := reg.Register(*c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			*c = existing
			return nil
		}
	}
	return err
}

// Handle implements httptask.Handler.
func (h *Handler) Handle(evt httptask.Event, e *request.Execution) {
	if evt != httptask.AfterExecutionEnd {
		return
	}

	method := methodLabel(e.Descriptor)
	h.executions.WithLabelValues(method, Outcome(e)).Inc()
	h.duration.WithLabelValues(method).Observe(e.Duration().Seconds())
}

// Outcome returns the outcome label value for e.
func Outcome(e *request.Execution) string {
	if e.Err == nil {
		return OutcomeSuccess
	}

	switch transient.Categorize(e.Err) {
	case transient.Canceled:
		return OutcomeCanceled
	case transient.Timeout:
		return OutcomeTimeout
	}

	return kindLabel(request.KindOf(e.Err))
}

// methodLabel bounds the method label to the standard methods, so
// extension methods cannot grow the label set.
func methodLabel(d *request.Descriptor) string {
	if d == nil {
		return "unknown"
	}
	m := d.Method()
	for _, std := range request.Methods() {
		if m.String() == string(std) {
			return m.String()
		}
	}
	return "other"
}

func kindLabel(k request.Kind) string {
	return strings.ReplaceAll(k.String(), " ", "_")
}
