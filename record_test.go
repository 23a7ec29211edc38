// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slsagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineEmitter_Emit(t *testing.T) {
	t.Run("will write a single prefixed line", func(t *testing.T) {
		t.Run("if the record contains newlines", func(t *testing.T) {
			var buf bytes.Buffer
			e := LineEmitter(&buf)

			err := e.Emit(context.Background(), Record{
				Type: TypeTransaction,
				Payload: Payload{
					Tags: map[string]any{"message": "line one\nline two"},
				},
			})
			if !assert.Nil(t, err) {
				return
			}

			out := buf.String()
			if !assert.True(t, strings.HasPrefix(out, LinePrefix+" {")) {
				return
			}
			if !assert.Equal(t, 1, strings.Count(out, "\n")) {
				return
			}
			if !assert.True(t, strings.HasSuffix(out, "\n")) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the writer fails", func(t *testing.T) {
			writeErr := errors.New("closed")
			e := LineEmitter(writerFunc(func(b []byte) (int, error) {
				return 0, writeErr
			}))

			err := e.Emit(context.Background(), Record{})
			if !assert.ErrorIs(t, err, writeErr) {
				return
			}
		})
	})
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

func TestRecord_JSON(t *testing.T) {
	t.Run("will contain every transaction tag", func(t *testing.T) {
		var buf bytes.Buffer
		a, _ := newTestAgent(WithEmitter(LineEmitter(&buf)))
		t.Setenv(envRegion, "us-east-1")

		h := WrapFunc(a, func(ctx context.Context, _ input) (string, error) {
			return "ok", nil
		}, "test-function", 6*time.Second)

		_, err := h.Invoke(invocationContext("request-1"), []byte(`{}`))
		require.Nil(t, err)

		line := strings.TrimPrefix(strings.TrimSuffix(buf.String(), "\n"), LinePrefix+" ")

		var rec map[string]any
		require.Nil(t, json.Unmarshal([]byte(line), &rec))
		require.Equal(t, "transaction", rec["type"])
		require.Equal(t, "sls-agent", rec["origin"])
		require.Equal(t, "0.0", rec["schemaVersion"])

		payload, ok := rec["payload"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "s-transaction-function", payload["operationName"])
		require.Equal(t, "s-span", payload["schemaType"])
		require.Equal(t, []any{}, payload["spans"])
		require.Equal(t, map[string]any{}, payload["logs"])

		spanContext, ok := payload["spanContext"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "request-1", spanContext["traceId"])
		require.Contains(t, spanContext, "xTraceId")

		tags, ok := payload["tags"].(map[string]any)
		require.True(t, ok)
		for _, key := range []string{
			"appUid", "applicationName", "computeContainerUptime", "computeCustomArn",
			"computeCustomAwsRequestId", "computeCustomEnvArch", "computeCustomEnvCpus",
			"computeCustomEnvMemoryFree", "computeCustomEnvMemoryTotal", "computeCustomEnvPlatform",
			"computeCustomFunctionName", "computeCustomFunctionVersion", "computeCustomInvokeId",
			"computeCustomLogGroupName", "computeCustomLogStreamName", "computeCustomMemorySize",
			"computeCustomRegion", "computeCustomSchemaType", "computeCustomSchemaVersion",
			"computeCustomXTraceId", "computeInstanceInvocationCount", "computeIsColdStart",
			"computeMemoryPercentageUsed", "computeMemorySize", "computeMemoryUsed",
			"computeRegion", "computeRuntime", "computeType", "eventCustomStage", "eventSource",
			"eventTimestamp", "eventType", "functionName", "schemaType", "schemaVersion",
			"serviceName", "stageName", "tenantId", "tenantUid", "pluginVersion", "timeout",
			"timestamp", "traceId", "transactionId", "errorCulprit", "errorExceptionMessage",
			"errorExceptionStacktrace", "errorExceptionType", "errorId", "errorFatal",
		} {
			require.Contains(t, tags, key)
		}
		require.Equal(t, "aws.lambda", tags["computeType"])
		require.Equal(t, "s-compute-aws-lambda", tags["computeCustomSchemaType"])
		require.Equal(t, "us-east-1", tags["computeRegion"])
		require.Equal(t, "unknown", tags["eventType"])
		require.Equal(t, "request-1", tags["computeCustomAwsRequestId"])
		require.Equal(t, true, tags["computeIsColdStart"])
		require.Nil(t, tags["errorId"])
	})
}
