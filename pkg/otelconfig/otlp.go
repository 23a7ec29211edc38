// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otelconfig

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// OTLPConfig
type OTLPConfig struct {
	Common

	// gRPC target string which is passed to grpc.DialContext
	Target string

	DialTimeout time.Duration
}

// OTLPOption
type OTLPOption interface {
	ApplyOTLP(*OTLPConfig)
}

type otlpOptionFunc func(*OTLPConfig)

func (f otlpOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(cfg)
}

// Target sets the collector address, e.g. "localhost:4317".
func Target(target string) OTLPOption {
	return otlpOptionFunc(func(cfg *OTLPConfig) {
		cfg.Target = target
	})
}

// OTLP exports spans to a collector over gRPC.
func OTLP(opts ...OTLPOption) Initializer {
	c := OTLPConfig{
		DialTimeout: time.Second,
	}
	for _, opt := range opts {
		opt.ApplyOTLP(&c)
	}
	return c
}

// Init implements Initializer interface.
func (cfg OTLPConfig) Init(ctx context.Context) (TracerProvider, error) {
	res, err := newResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		cfg.Target,
		// Note the use of insecure transport here. TLS is recommended in production.
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp),
	)
	return tp, nil
}
