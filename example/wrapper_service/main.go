// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command wrapper_service is a Lambda function whose invocations are
// reported by the agent.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/z5labs/slsagent"
	"github.com/z5labs/slsagent/httpclient"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	ctx := context.Background()
	logHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{})
	log := slog.New(logHandler)

	cfg, err := slsagent.ConfigFromEnv(ctx)
	if err != nil {
		log.Error("failed to read agent config", slog.Any("error", err))
		os.Exit(1)
	}
	agent := slsagent.New(cfg, slsagent.LogHandler(logHandler))

	awsCfg := aws.Config{
		Region:      os.Getenv("AWS_REGION"),
		Credentials: aws.NewCredentialsCache(envCredentials()),
	}
	agent.InstrumentAWS(&awsCfg)

	h := &handler{
		log: log,
		sqs: sqs.NewFromConfig(awsCfg),
		http: httpclient.New(
			httpclient.Name("wrapper_service"),
			httpclient.Recorder(agent),
			httpclient.LogHandler(logHandler),
			httpclient.Timeout(5*time.Second),
			httpclient.MaxRetries(2),
		),
		url: os.Getenv("WRAPPER_SERVICE_URL"),
	}

	lambda.Start(slsagent.WrapFunc(agent, h.Handle, os.Getenv("AWS_LAMBDA_FUNCTION_NAME"), 6*time.Second))
}

// envCredentials reads the credentials Lambda exposes to the function.
func envCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "EnvironmentVariables",
		}, nil
	})
}
