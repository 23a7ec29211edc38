// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slsagent

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"time"

	"github.com/z5labs/slsagent/pkg/slogfield"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/shirou/gopsutil/v4/mem"
)

const (
	envRegion      = "AWS_REGION"
	envXRayTraceID = "_X_AMZN_TRACE_ID"
)

type memoryStatFunc func(context.Context) (*mem.VirtualMemoryStat, error)

// computeTags returns the tags describing the execution environment.
func (a *Agent) computeTags(ctx context.Context, lc *lambdacontext.LambdaContext, now time.Time) map[string]any {
	region := nilIfEmpty(os.Getenv(envRegion))
	memorySize := nilIfZero(lambdacontext.MemoryLimitInMB)

	tags := map[string]any{
		"computeContainerUptime":       float64(now.Sub(a.startedAt)) / float64(time.Millisecond),
		"computeCustomArn":             nil,
		"computeCustomAwsRequestId":    nil,
		"computeCustomEnvArch":         runtime.GOARCH,
		"computeCustomEnvCpus":         runtime.NumCPU(),
		"computeCustomEnvMemoryFree":   nil,
		"computeCustomEnvMemoryTotal":  nil,
		"computeCustomEnvPlatform":     runtime.GOOS,
		"computeCustomFunctionName":    nilIfEmpty(lambdacontext.FunctionName),
		"computeCustomFunctionVersion": nilIfEmpty(lambdacontext.FunctionVersion),
		"computeCustomInvokeId":        nil,
		"computeCustomLogGroupName":    nilIfEmpty(lambdacontext.LogGroupName),
		"computeCustomLogStreamName":   nilIfEmpty(lambdacontext.LogStreamName),
		"computeCustomMemorySize":      memorySize,
		"computeCustomRegion":          region,
		"computeCustomSchemaType":      "s-compute-aws-lambda",
		"computeCustomSchemaVersion":   schemaVersion,
		"computeMemoryPercentageUsed":  nil,
		"computeMemorySize":            memorySize,
		"computeMemoryUsed":            heapUsage(),
		"computeRegion":                region,
		"computeRuntime":               "aws.lambda.go." + runtime.Version(),
		"computeType":                  "aws.lambda",
	}
	if lc != nil {
		tags["computeCustomArn"] = nilIfEmpty(lc.InvokedFunctionArn)
		tags["computeCustomAwsRequestId"] = nilIfEmpty(lc.AwsRequestID)
	}

	vm, err := a.memoryStat(ctx)
	if err != nil || vm == nil {
		a.log.DebugContext(ctx, "memory statistics unavailable", slogfield.Error(err))
		return tags
	}
	tags["computeCustomEnvMemoryFree"] = vm.Free
	tags["computeCustomEnvMemoryTotal"] = vm.Total
	if vm.Total > 0 {
		tags["computeMemoryPercentageUsed"] = float64(vm.Total-vm.Free) / float64(vm.Total) * 100
	}
	return tags
}

func heapUsage() any {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	b, err := json.Marshal(map[string]uint64{
		"heapAlloc": ms.HeapAlloc,
		"heapSys":   ms.HeapSys,
		"sys":       ms.Sys,
	})
	if err != nil {
		return nil
	}
	return string(b)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
