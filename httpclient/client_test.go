// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpclient

import (
	"bytes"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/z5labs/slsagent/instrument"
	"github.com/z5labs/slsagent/span"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
)

type spanBuffer struct {
	mu    sync.Mutex
	spans []span.Record
}

func (b *spanBuffer) Record(r span.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spans = append(b.spans, r)
}

func (b *spanBuffer) Spans() []span.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]span.Record(nil), b.spans...)
}

func TestTimeout(t *testing.T) {
	t.Run("will timeout", func(t *testing.T) {
		t.Run("if the timeout is set to be greater than zero", func(t *testing.T) {
			timeout := 500 * time.Millisecond
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * timeout):
				case <-r.Context().Done():
				}
			}))
			defer srv.Close()

			client := New(Timeout(timeout))
			_, err := client.Get(srv.URL)

			var nerr net.Error
			if !assert.ErrorAs(t, err, &nerr) {
				return
			}
			if !assert.True(t, nerr.Timeout()) {
				return
			}
		})
	})
}

func TestRecorder(t *testing.T) {
	t.Run("will record an http span", func(t *testing.T) {
		t.Run("if a recorder is configured", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			}))
			defer srv.Close()

			var buf spanBuffer
			var logs bytes.Buffer
			client := New(
				Name("test"),
				Recorder(&buf),
				LogHandler(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
			)

			resp, err := client.Get(srv.URL + "/hello")
			if !assert.Nil(t, err) {
				return
			}
			resp.Body.Close()

			spans := buf.Spans()
			if !assert.Len(t, spans, 1) {
				return
			}
			if !assert.Equal(t, "/hello", spans[0].Tags["requestPath"]) {
				return
			}
			if !assert.Equal(t, http.StatusAccepted, spans[0].Tags["httpStatus"]) {
				return
			}
			if !assert.Contains(t, logs.String(), `"http_client":"test"`) {
				return
			}
		})
	})

	t.Run("will not record an http span", func(t *testing.T) {
		t.Run("if the host is not captured", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			defer srv.Close()

			var buf spanBuffer
			client := New(
				Recorder(&buf),
				Hosts(instrument.NewHostFilter([]string{"*.amazonaws.com"}, nil)),
			)

			resp, err := client.Get(srv.URL)
			if !assert.Nil(t, err) {
				return
			}
			resp.Body.Close()

			assert.Empty(t, buf.Spans())
		})
	})
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("will return the response", func(t *testing.T) {
		t.Run("if the status code counts as a failure", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			client := New(TripAfter(2))

			resp, err := client.Get(srv.URL)
			if !assert.Nil(t, err) {
				return
			}
			resp.Body.Close()
			if !assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode) {
				return
			}
		})
	})

	t.Run("will fail fast", func(t *testing.T) {
		t.Run("if the circuit has been opened", func(t *testing.T) {
			calls := atomic.NewInt64(0)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Inc()
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			client := New(TripAfter(2), OpenStateTimeout(time.Minute))
			for i := 0; i < 2; i++ {
				resp, err := client.Get(srv.URL)
				if !assert.Nil(t, err) {
					return
				}
				resp.Body.Close()
			}

			_, err := client.Get(srv.URL)
			if !assert.ErrorIs(t, err, gobreaker.ErrOpenState) {
				return
			}
			if !assert.Equal(t, int64(2), calls.Load()) {
				return
			}
		})
	})
}

func TestRetry(t *testing.T) {
	t.Run("will retry the request", func(t *testing.T) {
		t.Run("if the server is temporarily unavailable", func(t *testing.T) {
			calls := atomic.NewInt64(0)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Inc() < 3 {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			var buf spanBuffer
			client := New(
				Recorder(&buf),
				MaxRetries(3),
				RetryWait(time.Millisecond, 5*time.Millisecond),
			)

			resp, err := client.Get(srv.URL)
			if !assert.Nil(t, err) {
				return
			}
			resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}
			if !assert.Len(t, buf.Spans(), 3) {
				return
			}
		})
	})
}
