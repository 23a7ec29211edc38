// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package span provides the timed record of a single instrumented outbound call.
package span

import (
	"time"
)

// TimeFormat is the layout used for every timestamp emitted by the agent.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in UTC using [TimeFormat].
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// Record is the sealed representation of a [Span]. It is produced
// exactly once by [Span.End] and never mutated afterwards.
type Record struct {
	Tags      map[string]any `json:"tags"`
	StartTime string         `json:"startTime"`
	EndTime   string         `json:"endTime"`
	Duration  int64          `json:"duration"`
}

// Type returns the category the span was opened with.
func (r Record) Type() string {
	s, _ := r.Tags["type"].(string)
	return s
}

// Span is an open span. Tags may only be set before [Span.End].
type Span struct {
	typ   string
	tags  map[string]any
	start time.Time
	ended bool
}

// Open starts a new span of the given type e.g. "aws" or "http".
func Open(typ string) *Span {
	return &Span{
		typ:   typ,
		tags:  make(map[string]any),
		start: time.Now(),
	}
}

// SetTag inserts or overwrites a tag.
func (s *Span) SetTag(key string, value any) {
	if s.ended {
		panic("span: SetTag called after End")
	}
	s.tags[key] = value
}

// End seals the span. The duration is computed from the monotonic
// clock reading taken by [Open] so wall clock adjustments made while
// the span was open do not skew it.
//
// End must be called at most once.
func (s *Span) End() Record {
	if s.ended {
		panic("span: End called more than once")
	}
	s.ended = true

	end := time.Now()
	tags := make(map[string]any, len(s.tags)+1)
	for k, v := range s.tags {
		tags[k] = v
	}
	tags["type"] = s.typ

	return Record{
		Tags:      tags,
		StartTime: FormatTime(s.start),
		EndTime:   FormatTime(end),
		Duration:  end.Sub(s.start).Milliseconds(),
	}
}
