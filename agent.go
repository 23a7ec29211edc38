// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slsagent

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/z5labs/slsagent/instrument"
	"github.com/z5labs/slsagent/lifecycle"
	"github.com/z5labs/slsagent/pkg/noop"
	"github.com/z5labs/slsagent/pkg/otelslog"
	"github.com/z5labs/slsagent/pkg/slogfield"
	"github.com/z5labs/slsagent/span"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

const tracerName = "github.com/z5labs/slsagent"

// Option configures an [Agent].
type Option func(*Agent)

// LogHandler configures the handler used for the agent's own logs.
// Default: logs are discarded.
func LogHandler(h slog.Handler) Option {
	return func(a *Agent) {
		a.log = otelslog.New(h)
	}
}

// WithEmitter configures where transaction records are written.
// Default: [LineEmitter] writing to [os.Stdout].
func WithEmitter(e Emitter) Option {
	return func(a *Agent) {
		a.emitter = e
	}
}

// TracerProvider configures the provider of the OpenTelemetry span
// opened around every invocation. Default: [otel.GetTracerProvider].
func TracerProvider(tp trace.TracerProvider) Option {
	return func(a *Agent) {
		a.tracer = tp.Tracer(tracerName)
	}
}

// PostInvoke registers a [lifecycle.Hook] which runs after the record
// of every invocation has been emitted. Failures are logged.
func PostInvoke(hook lifecycle.Hook) Option {
	return func(a *Agent) {
		a.postInvoke = append(a.postInvoke, hook)
	}
}

// Agent holds the state shared by every invocation of a function:
// its identity, the invocation counter and the span buffer.
type Agent struct {
	cfg        Config
	log        *slog.Logger
	emitter    Emitter
	tracer     trace.Tracer
	postInvoke []lifecycle.Hook
	memoryStat memoryStatFunc
	startedAt  time.Time

	invocations *atomic.Int64

	mu    sync.Mutex
	spans []span.Record
}

// New returns an [Agent]. It is usually created once, during function
// initialization, so spans recorded before the first invocation are
// reported with it.
func New(cfg Config, opts ...Option) *Agent {
	a := &Agent{
		cfg:         cfg,
		log:         otelslog.New(noop.LogHandler{}),
		emitter:     LineEmitter(nil),
		memoryStat:  mem.VirtualMemoryWithContext,
		startedAt:   time.Now(),
		invocations: atomic.NewInt64(0),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tracer == nil {
		a.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return a
}

// Config returns the configuration the agent was created with.
func (a *Agent) Config() Config {
	return a.cfg
}

// InvocationCount returns how many invocations have been emitted.
func (a *Agent) InvocationCount() int64 {
	return a.invocations.Load()
}

// Record implements the [instrument.Recorder] interface. It is safe to
// call from goroutines started by the handler.
func (a *Agent) Record(r span.Record) {
	a.mu.Lock()
	a.spans = append(a.spans, r)
	a.mu.Unlock()

	a.log.Debug(
		"span recorded",
		slogfield.SpanType(r.Type()),
		slogfield.Int64("duration_ms", r.Duration),
	)
}

// Spans returns a copy of the spans recorded since the current
// invocation started.
func (a *Agent) Spans() []span.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	spans := make([]span.Record, len(a.spans))
	copy(spans, a.spans)
	return spans
}

func (a *Agent) resetSpans() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.spans = nil
}

// InstrumentAWS records an "aws" span for every call made by clients
// built from cfg. A nil cfg is ignored.
func (a *Agent) InstrumentAWS(cfg *aws.Config) {
	instrument.InstrumentAWSConfig(cfg, a)
}

// Transport decorates base so that captured requests record an "http"
// span. A nil base decorates [http.DefaultTransport].
func (a *Agent) Transport(base http.RoundTripper) http.RoundTripper {
	return instrument.Transport(base, a, a.cfg.instrumentOptions()...)
}

// InstrumentDefaultTransport decorates [http.DefaultTransport] so every
// client which does not set its own transport is captured.
func (a *Agent) InstrumentDefaultTransport() {
	instrument.InstrumentDefaultTransport(a, a.cfg.instrumentOptions()...)
}

// WrapDoer decorates d so that captured requests record an "http" span.
// A nil d decorates [http.DefaultClient].
func (a *Agent) WrapDoer(d instrument.Doer) instrument.Doer {
	return instrument.WrapDoer(d, a, a.cfg.instrumentOptions()...)
}
