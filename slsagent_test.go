// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slsagent

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/shirou/gopsutil/v4/mem"
)

const testFunctionArn = "arn:aws:lambda:us-east-1:123456789012:function:test-function"

type recordBuffer struct {
	mu      sync.Mutex
	records []Record
}

func (b *recordBuffer) Emit(_ context.Context, r Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, r)
	return nil
}

func (b *recordBuffer) Records() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Record(nil), b.records...)
}

func newTestAgent(opts ...Option) (*Agent, *recordBuffer) {
	buf := &recordBuffer{}
	cfg := Config{
		TenantID:        "tenant",
		ApplicationName: "app",
		AppUID:          "app-uid",
		TenantUID:       "tenant-uid",
		DeploymentUID:   "deployment-uid",
		ServiceName:     "service",
		StageName:       "dev",
		PluginVersion:   "3.6.0",
	}
	a := New(cfg, append([]Option{WithEmitter(buf)}, opts...)...)
	a.memoryStat = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 1000, Free: 250}, nil
	}
	return a, buf
}

func invocationContext(requestID string) context.Context {
	return lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{
		AwsRequestID:       requestID,
		InvokedFunctionArn: testFunctionArn,
	})
}
