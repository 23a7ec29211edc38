// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instrument

import (
	"net/http"
	"strings"
	"sync"

	"github.com/z5labs/slsagent/span"
)

// awsSDKUserAgentPrefix identifies requests sent by the AWS SDK for Go.
const awsSDKUserAgentPrefix = "aws-sdk-go"

type roundTripper struct {
	base http.RoundTripper
	rec  Recorder
	opts *options
}

// Transport decorates base so that every captured request records an
// "http" span. A nil base decorates [http.DefaultTransport]. Decorating
// an already decorated transport returns it unchanged.
func Transport(base http.RoundTripper, rec Recorder, opts ...Option) http.RoundTripper {
	if rt, ok := base.(*roundTripper); ok {
		return rt
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &roundTripper{
		base: base,
		rec:  orNoop(rec),
		opts: newOptions(opts),
	}
}

var defaultTransportOnce sync.Once

// InstrumentDefaultTransport replaces [http.DefaultTransport] with a
// decorated version of itself. Only the first call has any effect.
func InstrumentDefaultTransport(rec Recorder, opts ...Option) {
	defaultTransportOnce.Do(func() {
		http.DefaultTransport = Transport(http.DefaultTransport, rec, opts...)
	})
}

// RoundTrip implements the [http.RoundTripper] interface.
func (rt *roundTripper) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	if !rt.captures(req) {
		return rt.base.RoundTrip(req)
	}

	s := span.Open("http")
	defer func() {
		tagRequest(s, req)
		if resp != nil {
			s.SetTag("httpStatus", resp.StatusCode)
		}
		rt.rec.Record(s.End())
	}()

	return rt.base.RoundTrip(req)
}

func (rt *roundTripper) captures(req *http.Request) bool {
	ua := req.Header.Get("User-Agent")
	if strings.HasPrefix(ua, awsSDKUserAgentPrefix) && !rt.opts.captureSDK {
		return false
	}
	return rt.opts.filter.Captures(req.URL.Hostname())
}

func tagRequest(s *span.Span, req *http.Request) {
	s.SetTag("requestHostname", strings.ToLower(req.URL.Hostname()))
	s.SetTag("requestPath", req.URL.Path)
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	s.SetTag("httpMethod", method)
}
