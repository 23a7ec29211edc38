// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelconfig builds OpenTelemetry tracer providers suited to a
// Lambda function, where spans must be flushed before the execution
// environment is frozen.
package otelconfig

import (
	"context"
	"io"
	"os"

	"github.com/z5labs/slsagent/lifecycle"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Common
type Common struct {
	ServiceName string
}

// CommonOption
type CommonOption interface {
	LocalOption
	OTLPOption
}

type commonOptionFunc func(*Common)

func (f commonOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(&cfg.Common)
}

func (f commonOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(&cfg.Common)
}

// ServiceName sets the service.name resource attribute.
func ServiceName(name string) CommonOption {
	return commonOptionFunc(func(c *Common) {
		c.ServiceName = name
	})
}

// TracerProvider is a [trace.TracerProvider] which buffers spans.
type TracerProvider interface {
	trace.TracerProvider

	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

// Initializer
type Initializer interface {
	Init(context.Context) (TracerProvider, error)
}

// Noop records nothing.
var Noop = noopConfiger{}

type noopConfiger struct{}

func (noopConfiger) Init(_ context.Context) (TracerProvider, error) {
	return sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample())), nil
}

// FlushHook returns a [lifecycle.Hook] which flushes tp. It is meant to
// run after every invocation.
func FlushHook(tp TracerProvider) lifecycle.Hook {
	return lifecycle.HookFunc(func(ctx context.Context) error {
		return tp.ForceFlush(ctx)
	})
}

// LocalConfig
type LocalConfig struct {
	Common

	Out io.Writer
}

// LocalOption
type LocalOption interface {
	ApplyLocal(*LocalConfig)
}

type localOptionFunc func(*LocalConfig)

func (f localOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(cfg)
}

// Output sets where spans are written. Default: [os.Stdout].
func Output(w io.Writer) LocalOption {
	return localOptionFunc(func(cfg *LocalConfig) {
		cfg.Out = w
	})
}

// Local writes spans as JSON.
func Local(opts ...LocalOption) Initializer {
	cfg := LocalConfig{
		Out: os.Stdout,
	}
	for _, opt := range opts {
		opt.ApplyLocal(&cfg)
	}
	return cfg
}

// Init implements Initializer interface.
func (cfg LocalConfig) Init(ctx context.Context) (TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Out),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

func newResource(ctx context.Context, c Common) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(c.ServiceName),
			semconv.CloudProviderAWS,
			semconv.CloudPlatformAWSLambda,
		),
	)
}
