// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package instrument

import (
	"context"
	"errors"

	"github.com/z5labs/slsagent/span"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

const (
	awsSpanMiddlewareID = "slsagent.AWSSpan"
	awsHostMiddlewareID = "slsagent.AWSRequestHost"
)

type awsHostKey struct{}

// AWS returns an API option, for use with [aws.Config.APIOptions], which
// records an "aws" span around every SDK operation. The span covers the
// whole operation, retries included.
//
// Applying the option to a stack which already has it is a no-op.
func AWS(rec Recorder) func(*middleware.Stack) error {
	rec = orNoop(rec)
	return func(stack *middleware.Stack) error {
		if _, ok := stack.Initialize.Get(awsSpanMiddlewareID); ok {
			return nil
		}

		// After service metadata has been registered so the
		// service, operation and region are readable from ctx.
		err := stack.Initialize.Add(awsSpanMiddleware(rec), middleware.After)
		if err != nil {
			return err
		}
		return stack.Finalize.Add(awsHostMiddleware(), middleware.After)
	}
}

// InstrumentAWSConfig appends [AWS] to the API options of cfg.
func InstrumentAWSConfig(cfg *aws.Config, rec Recorder) {
	if cfg == nil {
		return
	}
	cfg.APIOptions = append(cfg.APIOptions, AWS(rec))
}

func awsSpanMiddleware(rec Recorder) middleware.InitializeMiddleware {
	return middleware.InitializeMiddlewareFunc(
		awsSpanMiddlewareID,
		func(ctx context.Context, in middleware.InitializeInput, next middleware.InitializeHandler) (out middleware.InitializeOutput, md middleware.Metadata, err error) {
			s := span.Open("aws")
			host := new(string)
			ctx = middleware.WithStackValue(ctx, awsHostKey{}, host)
			defer func() {
				if *host != "" {
					s.SetTag("requestHostname", *host)
				}
				s.SetTag("aws", awsTags(ctx, md, err))
				rec.Record(s.End())
			}()

			return next.HandleInitialize(ctx, in)
		},
	)
}

func awsHostMiddleware() middleware.FinalizeMiddleware {
	return middleware.FinalizeMiddlewareFunc(
		awsHostMiddlewareID,
		func(ctx context.Context, in middleware.FinalizeInput, next middleware.FinalizeHandler) (middleware.FinalizeOutput, middleware.Metadata, error) {
			req, ok := in.Request.(*smithyhttp.Request)
			host, hasHost := middleware.GetStackValue(ctx, awsHostKey{}).(*string)
			if ok && hasHost && req.URL != nil {
				*host = req.URL.Host
			}
			return next.HandleFinalize(ctx, in)
		},
	)
}

func awsTags(ctx context.Context, md middleware.Metadata, err error) map[string]any {
	tags := map[string]any{
		"region":    nilIfEmpty(awsmiddleware.GetRegion(ctx)),
		"service":   nilIfEmpty(awsmiddleware.GetServiceID(ctx)),
		"operation": nilIfEmpty(awsmiddleware.GetOperationName(ctx)),
		"requestId": nil,
		"errorCode": nil,
	}
	if id, ok := awsmiddleware.GetRequestIDMetadata(md); ok {
		tags["requestId"] = nilIfEmpty(id)
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		tags["requestId"] = nilIfEmpty(respErr.ServiceRequestID())
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		tags["errorCode"] = nilIfEmpty(apiErr.ErrorCode())
	}
	return tags
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
