// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slsagent

import (
	"context"
	"os"
	"time"

	"github.com/z5labs/slsagent/internal/event"
	"github.com/z5labs/slsagent/internal/try"
	"github.com/z5labs/slsagent/lifecycle"
	"github.com/z5labs/slsagent/pkg/slogfield"
	"github.com/z5labs/slsagent/span"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type handler struct {
	agent   *Agent
	next    lambda.Handler
	name    string
	timeout time.Duration
}

// Wrap returns a [lambda.Handler] which invokes h and emits one
// transaction record per invocation. Results, errors and panics of h
// are passed through unchanged. The timeout is only reported.
func (a *Agent) Wrap(h lambda.Handler, functionName string, timeout time.Duration) lambda.Handler {
	return &handler{
		agent:   a,
		next:    h,
		name:    functionName,
		timeout: timeout,
	}
}

// WrapFunc wraps a typed handler func. See [Agent.Wrap].
func WrapFunc[TIn, TOut any](a *Agent, f func(context.Context, TIn) (TOut, error), functionName string, timeout time.Duration) lambda.Handler {
	return a.Wrap(lambda.NewHandler(f), functionName, timeout)
}

// Invoke implements the [lambda.Handler] interface.
func (h *handler) Invoke(ctx context.Context, payload []byte) (resp []byte, err error) {
	a := h.agent
	start := time.Now()
	if a.invocations.Load() > 0 {
		a.resetSpans()
	}

	txn := &Transaction{}
	lc := &lifecycle.Context{}
	ctx = newContext(ctx, txn)
	ctx = lifecycle.NewContext(ctx, lc)

	ctx, otelSpan := a.tracer.Start(ctx, operationName, trace.WithSpanKind(trace.SpanKindServer))
	defer func() {
		r := recover()
		switch {
		case r != nil:
			txn.fail(errorDataFromPanic(r, panicFrames(), h.name))
			otelSpan.SetStatus(codes.Error, "panic")
		case err != nil:
			txn.fail(errorDataFromError(err, true, nil, h.name))
			otelSpan.RecordError(err)
			otelSpan.SetStatus(codes.Error, err.Error())
		}
		otelSpan.End()

		emitErr := try.Do(func() error {
			return h.emit(ctx, txn, payload, start, time.Now())
		})
		if emitErr != nil {
			requestID := awsRequestID(ctx)
			a.log.ErrorContext(
				ctx,
				"failed to emit transaction record",
				slogfield.RequestID(requestID),
				slogfield.Error(EmitError{RequestID: requestID, Cause: emitErr}),
			)
		}
		a.runPostInvoke(ctx, lc)

		if r != nil {
			panic(r)
		}
	}()

	return h.next.Invoke(ctx, payload)
}

func awsRequestID(ctx context.Context) string {
	lc, _ := lambdacontext.FromContext(ctx)
	if lc == nil {
		return ""
	}
	return lc.AwsRequestID
}

func (h *handler) emit(ctx context.Context, txn *Transaction, payload []byte, start, end time.Time) error {
	a := h.agent
	count := a.invocations.Inc()

	requestID := awsRequestID(ctx)
	lc, _ := lambdacontext.FromContext(ctx)

	ev := event.Parse(payload)
	spanID, ok := ev.HTTPRequestID()
	if !ok {
		spanID = uuid.NewString()
	}
	xTraceID := lambdaXRayTraceID(ctx)

	tags := a.computeTags(ctx, lc, start)
	for k, v := range h.transactionTags(ev, requestID, spanID, count, start) {
		tags[k] = v
	}
	tags["computeCustomXTraceId"] = nilIfEmpty(xTraceID)

	errData := txn.errorData()
	for k, v := range errData.tags() {
		tags[k] = v
	}

	typ := TypeTransaction
	if errData.ID != nil {
		typ = TypeError
	}

	var xTrace *string
	if xTraceID != "" {
		xTrace = &xTraceID
	}

	startTime := span.FormatTime(start)
	endTime := span.FormatTime(end)
	rec := Record{
		Type:          typ,
		Origin:        "sls-agent",
		RequestID:     requestID,
		SchemaVersion: schemaVersion,
		Timestamp:     endTime,
		Payload: Payload{
			Duration:      float64(end.Sub(start)) / float64(time.Millisecond),
			StartTime:     startTime,
			EndTime:       endTime,
			Logs:          map[string]any{},
			OperationName: operationName,
			SchemaType:    "s-span",
			SchemaVersion: schemaVersion,
			SpanContext: SpanContext{
				SpanID:   spanID,
				TraceID:  requestID,
				XTraceID: xTrace,
			},
			Spans: a.Spans(),
			Tags:  tags,
		},
	}

	return a.emitter.Emit(ctx, rec)
}

func (h *handler) transactionTags(ev event.Event, requestID, spanID string, count int64, start time.Time) map[string]any {
	cfg := h.agent.cfg
	var stage any
	if s, ok := ev.Stage(); ok {
		stage = s
	}
	startTime := span.FormatTime(start)
	return map[string]any{
		"appUid":                         cfg.AppUID,
		"applicationName":                cfg.ApplicationName,
		"computeInstanceInvocationCount": count,
		"computeIsColdStart":             count == 1,
		"deploymentUid":                  cfg.DeploymentUID,
		"eventCustomStage":               stage,
		"eventSource":                    nil,
		"eventTimestamp":                 startTime,
		"eventType":                      ev.Type(),
		"functionName":                   h.name,
		"pluginVersion":                  cfg.PluginVersion,
		"schemaType":                     operationName,
		"schemaVersion":                  schemaVersion,
		"serviceName":                    cfg.ServiceName,
		"stageName":                      cfg.StageName,
		"tenantId":                       cfg.TenantID,
		"tenantUid":                      cfg.TenantUID,
		"timeout":                        h.timeout.Seconds(),
		"timestamp":                      startTime,
		"traceId":                        requestID,
		"transactionId":                  spanID,
	}
}

// lambdaXRayTraceID returns the X-Ray trace header of the current
// invocation. The Lambda runtime updates it before every invocation.
func lambdaXRayTraceID(ctx context.Context) string {
	if v, ok := ctx.Value("x-amzn-trace-id").(string); ok && v != "" {
		return v
	}
	return os.Getenv(envXRayTraceID)
}

func (a *Agent) runPostInvoke(ctx context.Context, lc *lifecycle.Context) {
	hooks := append([]lifecycle.Hook{lc.PostInvoke()}, a.postInvoke...)
	err := try.Do(func() error {
		return lifecycle.MultiHook(hooks...).Run(ctx)
	})
	if err != nil {
		a.log.ErrorContext(ctx, "post invoke hook failed", slogfield.Error(err))
	}
}
