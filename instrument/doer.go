// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instrument

import (
	"net/http"

	"github.com/z5labs/slsagent/span"
)

// Doer is the request dispatch entry point of an HTTP client e.g. [http.Client].
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

type doer struct {
	base Doer
	rec  Recorder
	opts *options
}

// WrapDoer decorates d so that every captured request records an "http"
// span. Unlike [Transport], the user agent is not inspected. A nil d
// decorates [http.DefaultClient] and decorating an already decorated
// [Doer] returns it unchanged. Requests sent by an [http.Client] whose
// transport is decorated by [Transport] are left to that transport.
func WrapDoer(d Doer, rec Recorder, opts ...Option) Doer {
	if w, ok := d.(*doer); ok {
		return w
	}
	if d == nil {
		d = http.DefaultClient
	}
	return &doer{
		base: d,
		rec:  orNoop(rec),
		opts: newOptions(opts),
	}
}

// Do implements the [Doer] interface.
func (d *doer) Do(req *http.Request) (resp *http.Response, err error) {
	if d.instrumentedTransport() || !d.opts.filter.Captures(req.URL.Hostname()) {
		return d.base.Do(req)
	}

	s := span.Open("http")
	defer func() {
		tagRequest(s, req)
		if resp != nil {
			s.SetTag("httpStatus", resp.StatusCode)
		}
		d.rec.Record(s.End())
	}()

	return d.base.Do(req)
}

// instrumentedTransport must be evaluated per request, the default
// transport can be replaced after wrapping.
func (d *doer) instrumentedTransport() bool {
	c, ok := d.base.(*http.Client)
	if !ok {
		return false
	}
	rt := c.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	_, ok = rt.(*roundTripper)
	return ok
}
