// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package instrument provides decorators which record a span for every
// outbound call made through the AWS SDK or an HTTP client.
//
// Each decorator delegates to the wrapped implementation with the
// original arguments and returns its results untouched. The only side
// effect is a sealed [span.Record] handed to a [Recorder], which is
// recorded even when the wrapped call fails or panics.
//
// Nil targets are ignored. An application which never builds an AWS
// config or never uses a particular HTTP client is not an error.
package instrument

import (
	"strings"

	"github.com/z5labs/slsagent/pkg/noop"
	"github.com/z5labs/slsagent/span"

	"github.com/bmatcuk/doublestar/v4"
)

// Recorder receives every sealed span.
type Recorder interface {
	Record(span.Record)
}

// RecorderFunc is a func variant of the [Recorder] interface.
type RecorderFunc func(span.Record)

// Record implements the [Recorder] interface.
func (f RecorderFunc) Record(r span.Record) {
	f(r)
}

func orNoop(rec Recorder) Recorder {
	if rec == nil {
		return noop.Recorder{}
	}
	return rec
}

// HostFilter decides which hosts get a span. Patterns use glob syntax
// so "*" matches every host and "*.amazonaws.com" matches any AWS
// endpoint. Matching is case insensitive.
type HostFilter struct {
	capture []string
	ignore  []string
}

// AllHosts captures every host.
var AllHosts = NewHostFilter([]string{"*"}, nil)

// NewHostFilter returns a [HostFilter] which captures a host if it matches
// any capture pattern and none of the ignore patterns.
func NewHostFilter(capture, ignore []string) HostFilter {
	return HostFilter{
		capture: lower(capture),
		ignore:  lower(ignore),
	}
}

// Captures reports whether a span should be recorded for host.
// The ignore list is consulted after the capture list and always wins.
func (f HostFilter) Captures(host string) bool {
	host = strings.ToLower(host)
	return matchAny(f.capture, host) && !matchAny(f.ignore, host)
}

func lower(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, strings.ToLower(s))
	}
	return out
}

func matchAny(patterns []string, host string) bool {
	for _, p := range patterns {
		if p == host {
			return true
		}
		ok, err := doublestar.Match(p, host)
		if err == nil && ok {
			return true
		}
	}
	return false
}

type options struct {
	filter     HostFilter
	captureSDK bool
}

// Option configures the HTTP decorators.
type Option func(*options)

// Hosts configures which hosts are captured. Default: [AllHosts].
func Hosts(f HostFilter) Option {
	return func(o *options) {
		o.filter = f
	}
}

// CaptureAWSSDKHTTP forces the HTTP transport decorator to record
// requests sent by the AWS SDK. By default these are skipped since
// the SDK call itself is already captured by [AWS].
func CaptureAWSSDKHTTP(b bool) Option {
	return func(o *options) {
		o.captureSDK = b
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		filter: AllHosts,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
