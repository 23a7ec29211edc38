// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slsagent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/z5labs/slsagent/span"
)

// LinePrefix starts every line written by [LineEmitter].
const LinePrefix = "SERVERLESS_ENTERPRISE"

// Record types.
const (
	TypeTransaction = "transaction"
	TypeError       = "error"
)

const (
	schemaVersion = "0.0"
	operationName = "s-transaction-function"
)

// Record is the transaction record emitted once per invocation.
type Record struct {
	Type          string  `json:"type"`
	Origin        string  `json:"origin"`
	RequestID     string  `json:"requestId"`
	SchemaVersion string  `json:"schemaVersion"`
	Timestamp     string  `json:"timestamp"`
	Payload       Payload `json:"payload"`
}

type Payload struct {
	Duration      float64        `json:"duration"`
	StartTime     string         `json:"startTime"`
	EndTime       string         `json:"endTime"`
	Logs          map[string]any `json:"logs"`
	OperationName string         `json:"operationName"`
	SchemaType    string         `json:"schemaType"`
	SchemaVersion string         `json:"schemaVersion"`
	SpanContext   SpanContext    `json:"spanContext"`
	Spans         []span.Record  `json:"spans"`
	Tags          map[string]any `json:"tags"`
}

type SpanContext struct {
	SpanID   string  `json:"spanId"`
	TraceID  string  `json:"traceId"`
	XTraceID *string `json:"xTraceId"`
}

// Emitter writes transaction records.
type Emitter interface {
	Emit(context.Context, Record) error
}

// EmitterFunc is a func variant of the [Emitter] interface.
type EmitterFunc func(context.Context, Record) error

// Emit implements the [Emitter] interface.
func (f EmitterFunc) Emit(ctx context.Context, r Record) error {
	return f(ctx, r)
}

type lineEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// LineEmitter returns an [Emitter] which writes every record to w as a
// single line made of [LinePrefix], a space and the JSON encoded record.
// A nil w writes to [os.Stdout].
func LineEmitter(w io.Writer) Emitter {
	if w == nil {
		w = os.Stdout
	}
	return &lineEmitter{w: w}
}

func (e *lineEmitter) Emit(_ context.Context, r Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Grow(len(LinePrefix) + len(b) + 2)
	buf.WriteString(LinePrefix)
	buf.WriteByte(' ')
	buf.Write(b)
	buf.WriteByte('\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.w.Write(buf.Bytes())
	return err
}
