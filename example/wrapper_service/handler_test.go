// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/z5labs/slsagent"
	"github.com/z5labs/slsagent/pkg/noop"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
)

type listQueuesFunc func(context.Context, *sqs.ListQueuesInput, ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error)

func (f listQueuesFunc) ListQueues(ctx context.Context, in *sqs.ListQueuesInput, opts ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error) {
	return f(ctx, in, opts...)
}

type doFunc func(*http.Request) (*http.Response, error)

func (f doFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

type recordBuffer struct {
	records []slsagent.Record
}

func (b *recordBuffer) Emit(_ context.Context, r slsagent.Record) error {
	b.records = append(b.records, r)
	return nil
}

func twoQueues(context.Context, *sqs.ListQueuesInput, ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error) {
	return &sqs.ListQueuesOutput{QueueUrls: []string{"a", "b"}}, nil
}

func TestHandler_Handle(t *testing.T) {
	t.Run("will return the queue count and status code", func(t *testing.T) {
		t.Run("if every call succeeds", func(t *testing.T) {
			h := &handler{
				log: slog.New(noop.LogHandler{}),
				sqs: listQueuesFunc(twoQueues),
				http: doFunc(func(r *http.Request) (*http.Response, error) {
					return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}, nil
				}),
				url: "https://example.com",
			}

			resp, err := h.Handle(context.Background(), Request{})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, Response{Queues: 2, StatusCode: http.StatusOK}, resp) {
				return
			}
		})
	})

	t.Run("will capture a non fatal error", func(t *testing.T) {
		t.Run("if the url can not be fetched", func(t *testing.T) {
			var buf recordBuffer
			agent := slsagent.New(slsagent.Config{}, slsagent.WithEmitter(&buf))
			h := &handler{
				log: slog.New(noop.LogHandler{}),
				sqs: listQueuesFunc(twoQueues),
				http: doFunc(func(r *http.Request) (*http.Response, error) {
					return nil, errors.New("connection refused")
				}),
				url: "https://example.com",
			}

			resp, err := slsagent.WrapFunc(agent, h.Handle, "wrapper_service", 0).Invoke(context.Background(), []byte(`{}`))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.JSONEq(t, `{"queues":2,"statusCode":0}`, string(resp)) {
				return
			}
			if !assert.Len(t, buf.records, 1) {
				return
			}
			if !assert.Equal(t, slsagent.TypeError, buf.records[0].Type) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the request asks to fail", func(t *testing.T) {
			h := &handler{log: slog.New(noop.LogHandler{}), sqs: listQueuesFunc(twoQueues)}

			_, err := h.Handle(context.Background(), Request{Fail: true})
			assert.Error(t, err)
		})

		t.Run("if the queues can not be listed", func(t *testing.T) {
			sqsErr := errors.New("throttled")
			h := &handler{
				log: slog.New(noop.LogHandler{}),
				sqs: listQueuesFunc(func(context.Context, *sqs.ListQueuesInput, ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error) {
					return nil, sqsErr
				}),
			}

			_, err := h.Handle(context.Background(), Request{})
			assert.ErrorIs(t, err, sqsErr)
		})
	})
}
