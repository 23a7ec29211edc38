// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/z5labs/slsagent"
	"github.com/z5labs/slsagent/httpclient"
	"github.com/z5labs/slsagent/internal/try"
	"github.com/z5labs/slsagent/pkg/otelconfig"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Demo handler outcomes.
const (
	handlerSuccess   = "success"
	handlerError     = "error"
	handlerRecovered = "recovered"
	handlerPanic     = "panic"
)

type invokeConfig struct {
	Event        string        `mapstructure:"event"`
	Function     string        `mapstructure:"function"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Handler      string        `mapstructure:"handler"`
	RequestID    string        `mapstructure:"request-id"`
	URLs         []string      `mapstructure:"url"`
	TraceStdout  bool          `mapstructure:"trace-stdout"`
	OTLPEndpoint string        `mapstructure:"otlp-endpoint"`
	Debug        bool          `mapstructure:"debug"`
}

// UnknownHandlerError is returned for a --handler value with no demo handler.
type UnknownHandlerError struct {
	Name string
}

func (e UnknownHandlerError) Error() string {
	return fmt.Sprintf("unknown handler: %s", e.Name)
}

// InvokeError is returned when the demo handler failed or panicked.
type InvokeError struct {
	Cause error
}

func (e InvokeError) Error() string {
	return fmt.Sprintf("invocation failed: %s", e.Cause)
}

func (e InvokeError) Unwrap() error {
	return e.Cause
}

func newViper() *viper.Viper {
	vp := viper.New()
	vp.SetEnvPrefix("slsinvoke")
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv()
	return vp
}

func newCommand(vp *viper.Viper, out io.Writer) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:           "slsinvoke",
		Short:         "Invoke a wrapped demo handler and print its transaction record",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg invokeConfig
			err := vp.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			)))
			if err != nil {
				return err
			}

			log, err := newLogger(cfg.Debug)
			if err != nil {
				return err
			}
			defer log.Sync()

			return invoke(cmd.Context(), cfg, out, log)
		},
	}

	flags := cmd.Flags()
	flags.String("event", "", "path to a JSON event file, defaults to an empty object")
	flags.String("function", "slsinvoke-demo", "function name reported in the record")
	flags.Duration("timeout", 6*time.Second, "function timeout")
	flags.String("handler", handlerSuccess, "demo handler outcome: success, error, recovered or panic")
	flags.String("request-id", "", "aws request id, defaults to a random uuid")
	flags.StringSlice("url", nil, "urls the demo handler fetches before returning")
	flags.Bool("trace-stdout", false, "write otel spans to stderr")
	flags.String("otlp-endpoint", "", "export otel spans to this collector")
	flags.Bool("debug", false, "enable debug logging")
	err := vp.BindPFlags(flags)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func invoke(ctx context.Context, cfg invokeConfig, out io.Writer, log *zap.Logger) (err error) {
	payload, err := readEvent(cfg.Event)
	if err != nil {
		return err
	}

	agentCfg, err := slsagent.ConfigFromEnv(ctx)
	if err != nil {
		return err
	}

	tp, err := tracerProvider(cfg).Init(ctx)
	if err != nil {
		return err
	}
	defer func() {
		serr := tp.Shutdown(context.Background())
		if serr != nil {
			log.Warn("failed to shutdown tracer provider", zap.Error(serr))
		}
	}()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})

	agent := slsagent.New(
		agentCfg,
		slsagent.LogHandler(logHandler),
		slsagent.WithEmitter(slsagent.LineEmitter(out)),
		slsagent.TracerProvider(tp),
		slsagent.PostInvoke(otelconfig.FlushHook(tp)),
	)

	client := httpclient.New(
		httpclient.Name("slsinvoke"),
		httpclient.Recorder(agent),
		httpclient.LogHandler(logHandler),
		httpclient.TracerProvider(tp),
		httpclient.Timeout(cfg.Timeout),
	)
	f, err := demoHandler(cfg.Handler, client, cfg.URLs)
	if err != nil {
		return err
	}
	h := slsagent.WrapFunc(agent, f, cfg.Function, cfg.Timeout)

	requestID := cfg.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{
		AwsRequestID:       requestID,
		InvokedFunctionArn: fmt.Sprintf("arn:aws:lambda:%s:000000000000:function:%s", region(), cfg.Function),
	})
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	log.Debug("invoking handler",
		zap.String("function", cfg.Function),
		zap.String("handler", cfg.Handler),
		zap.String("aws_request_id", requestID),
	)

	resp, err := invokeHandler(ctx, h, payload)
	if err != nil {
		log.Error("handler failed", zap.Error(err))
		return InvokeError{Cause: err}
	}
	log.Info("handler returned", zap.ByteString("response", resp))
	return nil
}

func invokeHandler(ctx context.Context, h lambda.Handler, payload []byte) (resp []byte, err error) {
	defer try.Recover(&err)
	return h.Invoke(ctx, payload)
}

func readEvent(path string) (b []byte, err error) {
	if path == "" {
		return []byte("{}"), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer try.Close(&err, f)

	b, err = io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("event file %s does not contain valid json", path)
	}
	return b, nil
}

func tracerProvider(cfg invokeConfig) otelconfig.Initializer {
	switch {
	case cfg.OTLPEndpoint != "":
		return otelconfig.OTLP(
			otelconfig.ServiceName(cfg.Function),
			otelconfig.Target(cfg.OTLPEndpoint),
		)
	case cfg.TraceStdout:
		return otelconfig.Local(
			otelconfig.ServiceName(cfg.Function),
			otelconfig.Output(os.Stderr),
		)
	default:
		return otelconfig.Noop
	}
}

func region() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	return "us-east-1"
}

func demoHandler(name string, client *http.Client, urls []string) (func(context.Context, json.RawMessage) (string, error), error) {
	fetch := func(ctx context.Context) error {
		for _, u := range urls {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
		}
		return nil
	}

	switch name {
	case handlerSuccess:
		return func(ctx context.Context, _ json.RawMessage) (string, error) {
			err := fetch(ctx)
			if err != nil {
				return "", err
			}
			return "ok", nil
		}, nil
	case handlerError:
		return func(ctx context.Context, _ json.RawMessage) (string, error) {
			return "", errors.New("error")
		}, nil
	case handlerRecovered:
		return func(ctx context.Context, _ json.RawMessage) (string, error) {
			err := fetch(ctx)
			if err != nil {
				slsagent.CaptureError(ctx, err)
				return "recovered", nil
			}
			slsagent.CaptureError(ctx, errors.New("error"))
			return "ok", nil
		}, nil
	case handlerPanic:
		return func(ctx context.Context, _ json.RawMessage) (string, error) {
			panic("error")
		}, nil
	default:
		return nil, UnknownHandlerError{Name: name}
	}
}
