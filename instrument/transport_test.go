// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instrument

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestTransport(t *testing.T) {
	t.Run("will pass the response through", func(t *testing.T) {
		t.Run("if no recorder is given", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			client := &http.Client{Transport: Transport(nil, nil)}

			resp, err := client.Get(srv.URL)
			if !assert.Nil(t, err) {
				return
			}
			resp.Body.Close()
			if !assert.Equal(t, http.StatusNoContent, resp.StatusCode) {
				return
			}
		})
	})

	t.Run("will record an http span", func(t *testing.T) {
		t.Run("if the request host is captured", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))
			defer srv.Close()

			var buf spanBuffer
			client := &http.Client{
				Transport: Transport(http.DefaultTransport, &buf),
			}

			resp, err := client.Get(srv.URL + "/get")
			if !assert.Nil(t, err) {
				return
			}
			resp.Body.Close()
			if !assert.Equal(t, http.StatusTeapot, resp.StatusCode) {
				return
			}

			spans := buf.Spans()
			if !assert.Len(t, spans, 1) {
				return
			}

			u, _ := url.Parse(srv.URL)
			tags := spans[0].Tags
			if !assert.Equal(t, "http", tags["type"]) {
				return
			}
			if !assert.Equal(t, u.Hostname(), tags["requestHostname"]) {
				return
			}
			if !assert.Equal(t, "/get", tags["requestPath"]) {
				return
			}
			if !assert.Equal(t, http.MethodGet, tags["httpMethod"]) {
				return
			}
			if !assert.Equal(t, http.StatusTeapot, tags["httpStatus"]) {
				return
			}
		})

		t.Run("if the underlying transport fails", func(t *testing.T) {
			rtErr := errors.New("connection refused")
			base := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return nil, rtErr
			})

			var buf spanBuffer
			rt := Transport(base, &buf)

			req, _ := http.NewRequest(http.MethodPost, "http://example.com/items", nil)
			resp, err := rt.RoundTrip(req)
			if !assert.Equal(t, rtErr, err) {
				return
			}
			if !assert.Nil(t, resp) {
				return
			}

			spans := buf.Spans()
			if !assert.Len(t, spans, 1) {
				return
			}
			if !assert.Equal(t, http.MethodPost, spans[0].Tags["httpMethod"]) {
				return
			}
			if !assert.NotContains(t, spans[0].Tags, "httpStatus") {
				return
			}
		})

		t.Run("if the underlying transport panics", func(t *testing.T) {
			base := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				panic("boom")
			})

			var buf spanBuffer
			rt := Transport(base, &buf)

			req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
			assert.PanicsWithValue(t, "boom", func() {
				rt.RoundTrip(req)
			})
			assert.Len(t, buf.Spans(), 1)
		})

		t.Run("if the request was sent by the aws sdk and capture is forced", func(t *testing.T) {
			base := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
			})

			var buf spanBuffer
			rt := Transport(base, &buf, CaptureAWSSDKHTTP(true))

			req, _ := http.NewRequest(http.MethodPost, "https://sqs.us-east-1.amazonaws.com/", nil)
			req.Header.Set("User-Agent", "aws-sdk-go-v2/1.24.1 os/linux lang/go#1.21")
			_, err := rt.RoundTrip(req)
			if !assert.Nil(t, err) {
				return
			}
			assert.Len(t, buf.Spans(), 1)
		})
	})

	t.Run("will not record a span", func(t *testing.T) {
		t.Run("if the host is ignored even though it is captured", func(t *testing.T) {
			called := false
			base := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				called = true
				return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
			})

			var buf spanBuffer
			rt := Transport(base, &buf, Hosts(NewHostFilter([]string{"*", "example.com"}, []string{"example.com"})))

			req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
			_, err := rt.RoundTrip(req)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.True(t, called) {
				return
			}
			assert.Empty(t, buf.Spans())
		})

		t.Run("if the request was sent by the aws sdk", func(t *testing.T) {
			base := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
			})

			var buf spanBuffer
			rt := Transport(base, &buf)

			req, _ := http.NewRequest(http.MethodPost, "https://sqs.us-east-1.amazonaws.com/", nil)
			req.Header.Set("User-Agent", "aws-sdk-go-v2/1.24.1 os/linux lang/go#1.21")
			_, err := rt.RoundTrip(req)
			if !assert.Nil(t, err) {
				return
			}
			assert.Empty(t, buf.Spans())
		})
	})

	t.Run("will not decorate twice", func(t *testing.T) {
		t.Run("if the transport is already decorated", func(t *testing.T) {
			var buf spanBuffer
			rt := Transport(nil, &buf)

			if !assert.Same(t, rt, Transport(rt, &buf)) {
				return
			}
		})
	})
}

func TestInstrumentDefaultTransport(t *testing.T) {
	t.Run("will only decorate the default transport once", func(t *testing.T) {
		orig := http.DefaultTransport
		defer func() {
			http.DefaultTransport = orig
		}()

		var buf spanBuffer
		InstrumentDefaultTransport(&buf)
		first := http.DefaultTransport
		InstrumentDefaultTransport(&buf)

		if !assert.IsType(t, &roundTripper{}, first) {
			return
		}
		if !assert.Same(t, first.(*roundTripper), http.DefaultTransport.(*roundTripper)) {
			return
		}
		assert.Same(t, orig, first.(*roundTripper).base)
	})
}
