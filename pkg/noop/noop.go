// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package noop provides implementations which discard everything given to them.
package noop

import (
	"context"
	"log/slog"

	"github.com/z5labs/slsagent/span"
)

// LogHandler is a slog.Handler which drops every record.
type LogHandler struct{}

func (LogHandler) Enabled(_ context.Context, _ slog.Level) bool  { return false }
func (LogHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (h LogHandler) WithAttrs(_ []slog.Attr) slog.Handler        { return h }
func (h LogHandler) WithGroup(name string) slog.Handler          { return h }

// Recorder discards every sealed span it receives.
type Recorder struct{}

// Record implements the instrument.Recorder interface.
func (Recorder) Record(span.Record) {}
