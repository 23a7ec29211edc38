// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package slogfield provides the slog.Attr constructors used across the agent.
package slogfield

import (
	"log/slog"
	"time"
)

// Duration returns an slog.Attr for a time.Duration.
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}

// Error returns an slog.Attr for a error.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// String returns an slog.Attr for a string.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int returns an slog.Attr for a int.
func Int(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Int64 returns an slog.Attr for a int64.
func Int64(key string, n int64) slog.Attr {
	return slog.Int64(key, n)
}

// RequestID returns the slog.Attr used to correlate logs with a Lambda invocation.
func RequestID(id string) slog.Attr {
	return slog.String("aws_request_id", id)
}

// SpanType returns the slog.Attr naming the category of an instrumented call.
func SpanType(typ string) slog.Attr {
	return slog.String("span_type", typ)
}

// Uint32 returns an slog.Attr for a uint32.
func Uint32(key string, n uint32) slog.Attr {
	return slog.Uint64(key, uint64(n))
}
