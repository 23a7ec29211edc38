// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/z5labs/slsagent"
	"github.com/z5labs/slsagent/pkg/slogfield"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type sqsListClient interface {
	ListQueues(context.Context, *sqs.ListQueuesInput, ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error)
}

type doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Request is the invocation payload.
type Request struct {
	Fail bool `json:"fail"`
}

// Response reports what the handler saw.
type Response struct {
	Queues     int `json:"queues"`
	StatusCode int `json:"statusCode"`
}

type handler struct {
	log  *slog.Logger
	sqs  sqsListClient
	http doer
	url  string
}

// Handle lists the account's queues and fetches the configured url.
// An unreachable url is reported to the agent without failing.
func (h *handler) Handle(ctx context.Context, req Request) (Response, error) {
	if req.Fail {
		return Response{}, errors.New("error")
	}

	out, err := h.sqs.ListQueues(ctx, &sqs.ListQueuesInput{})
	if err != nil {
		return Response{}, fmt.Errorf("failed to list queues: %w", err)
	}
	resp := Response{Queues: len(out.QueueUrls)}
	if h.url == "" {
		return resp, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return Response{}, err
	}
	httpResp, err := h.http.Do(httpReq)
	if err != nil {
		h.log.WarnContext(ctx, "failed to fetch url", slogfield.String("url", h.url), slogfield.Error(err))
		slsagent.CaptureError(ctx, err)
		return resp, nil
	}
	defer httpResp.Body.Close()

	resp.StatusCode = httpResp.StatusCode
	return resp, nil
}
