// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpclient provides a production ready http.Client whose
// requests are recorded as agent spans.
package httpclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/z5labs/slsagent/instrument"
	"github.com/z5labs/slsagent/pkg/noop"
	"github.com/z5labs/slsagent/pkg/otelslog"
	"github.com/z5labs/slsagent/pkg/slogfield"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type circuitOptions struct {
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	tripCount   uint32
	statusCodes []int
}

func withCircuitOption(f func(*circuitOptions)) Option {
	return func(o *options) {
		if o.co == nil {
			o.co = &circuitOptions{tripCount: 5}
		}
		f(o.co)
	}
}

// HalfOpenRequests is the number of requests allowed through while the
// circuit is half open. Zero allows a single request.
func HalfOpenRequests(n uint32) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.maxRequests = n
	})
}

// OpenStateTimeout is how long the circuit stays open before it becomes
// half open.
func OpenStateTimeout(d time.Duration) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.timeout = d
	})
}

// CountResetInterval is the cyclic period after which failure counts
// are cleared while the circuit is closed.
func CountResetInterval(d time.Duration) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.interval = d
	})
}

// TripAfter opens the circuit after n consecutive failures. Default: 5.
func TripAfter(n uint32) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.tripCount = n
	})
}

// TripOn configures which response status codes count as failures.
// Default: 500, 502, 503 and 504.
func TripOn(codes ...int) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.statusCodes = append(co.statusCodes, codes...)
	})
}

type retryOptions struct {
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
}

func withRetryOption(f func(*retryOptions)) Option {
	return func(o *options) {
		if o.ro == nil {
			o.ro = &retryOptions{
				maxRetries: 3,
				waitMin:    100 * time.Millisecond,
				waitMax:    time.Second,
			}
		}
		f(o.ro)
	}
}

// MaxRetries enables retries of failed requests.
func MaxRetries(n int) Option {
	return withRetryOption(func(ro *retryOptions) {
		ro.maxRetries = n
	})
}

// RetryWait bounds the backoff between two attempts.
func RetryWait(waitMin, waitMax time.Duration) Option {
	return withRetryOption(func(ro *retryOptions) {
		ro.waitMin = waitMin
		ro.waitMax = waitMax
	})
}

type options struct {
	timeout time.Duration
	rt      http.RoundTripper

	name       string
	logHandler slog.Handler
	tp         trace.TracerProvider

	rec         instrument.Recorder
	instrumentO []instrument.Option

	co *circuitOptions
	ro *retryOptions
}

type Option func(*options)

// Name names the client in logs and circuit breaker state changes.
func Name(s string) Option {
	return func(o *options) {
		o.name = s
	}
}

// RoundTripper sets the base transport. Default: [http.DefaultTransport].
func RoundTripper(rt http.RoundTripper) Option {
	return func(wo *options) {
		wo.rt = rt
	}
}

// Timeout provides a global timeout value for the http.Client.
func Timeout(d time.Duration) Option {
	return func(wo *options) {
		wo.timeout = d
	}
}

func LogHandler(h slog.Handler) Option {
	return func(wo *options) {
		wo.logHandler = h
	}
}

// TracerProvider sets the provider used by the otelhttp transport.
func TracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tp = tp
	}
}

// Recorder records an "http" span for every request attempt, usually
// the agent of the current function.
func Recorder(rec instrument.Recorder) Option {
	return func(o *options) {
		o.rec = rec
	}
}

// Hosts limits which hosts are recorded by [Recorder].
func Hosts(f instrument.HostFilter) Option {
	return func(o *options) {
		o.instrumentO = append(o.instrumentO, instrument.Hosts(f))
	}
}

// New builds an http.Client. From the innermost layer out, a request
// passes through the base transport, the span recorder, otelhttp, the
// request logger, the optional circuit breaker and the optional retries.
func New(opts ...Option) *http.Client {
	o := &options{
		rt:         http.DefaultTransport,
		logHandler: noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tp == nil {
		o.tp = otel.GetTracerProvider()
	}

	logger := otelslog.New(o.logHandler)
	if o.name != "" {
		logger = logger.With(slogfield.String("http_client", o.name))
	}

	rt := o.rt
	if o.rec != nil {
		rt = instrument.Transport(rt, o.rec, o.instrumentO...)
	}
	rt = otelhttp.NewTransport(rt, otelhttp.WithTracerProvider(o.tp))
	rt = &logRoundTripper{
		base: rt,
		log:  logger,
	}
	if o.co != nil {
		rt = newCircuitRoundTripper(o.name, rt, o.co, logger)
	}
	if o.ro == nil {
		return &http.Client{
			Timeout:   o.timeout,
			Transport: rt,
		}
	}

	ro := o.ro
	rc := retryablehttp.Client{
		HTTPClient: &http.Client{
			Timeout:   o.timeout,
			Transport: rt,
		},
		Logger:       logger,
		RetryWaitMin: ro.waitMin,
		RetryWaitMax: ro.waitMax,
		RetryMax:     ro.maxRetries,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return rc.StandardClient()
}

type logRoundTripper struct {
	base http.RoundTripper
	log  *slog.Logger
}

func (rt *logRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()
	rt.log.DebugContext(
		ctx,
		"request sent",
		slogfield.String("url", req.URL.String()),
	)
	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		rt.log.WarnContext(
			ctx,
			"request failed",
			slogfield.String("url", req.URL.String()),
			slogfield.Error(err),
		)
		return nil, err
	}
	rt.log.DebugContext(
		ctx,
		"response received",
		slogfield.String("url", req.URL.String()),
		slogfield.Int("status_code", resp.StatusCode),
		slogfield.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

type statusCodeError struct {
	code int
}

func (e statusCodeError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

type circuitRoundTripper struct {
	base  http.RoundTripper
	cb    *gobreaker.CircuitBreaker
	codes map[int]struct{}
}

func newCircuitRoundTripper(name string, base http.RoundTripper, co *circuitOptions, logger *slog.Logger) *circuitRoundTripper {
	statusCodes := co.statusCodes
	if len(statusCodes) == 0 {
		statusCodes = []int{
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		}
	}
	codes := make(map[int]struct{}, len(statusCodes))
	for _, code := range statusCodes {
		codes[code] = struct{}{}
	}

	return &circuitRoundTripper{
		base:  base,
		codes: codes,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: co.maxRequests,
			Interval:    co.interval,
			Timeout:     co.timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= co.tripCount
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				switch to {
				case gobreaker.StateOpen:
					logger.Error("circuit has been opened")
				case gobreaker.StateHalfOpen:
					logger.Warn(
						"circuit is now half open and letting some requests through",
						slogfield.Uint32("max_requests_allowed_through", co.maxRequests),
					)
				case gobreaker.StateClosed:
					logger.Info("circuit has been closed")
				}
			},
		}),
	}
}

// RoundTrip counts responses with a tripping status code as failures but
// still returns them to the caller.
func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	_, err := rt.cb.Execute(func() (interface{}, error) {
		var err error
		resp, err = rt.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if _, ok := rt.codes[resp.StatusCode]; ok {
			return nil, statusCodeError{code: resp.StatusCode}
		}
		return nil, nil
	})

	var serr statusCodeError
	if errors.As(err, &serr) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
