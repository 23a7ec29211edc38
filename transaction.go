// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slsagent

import (
	"context"
	"sync"
)

// Transaction is the handle of a single invocation. It is reachable from
// the handler through [FromContext].
type Transaction struct {
	mu  sync.Mutex
	err *ErrorData
}

// CaptureError reports an error the handler recovered from. The record
// of the invocation is typed "error" with errorFatal set to false but the
// invocation result is unaffected. Only the last captured error is kept
// and a fatal error always replaces it.
func (t *Transaction) CaptureError(err error) {
	t.captureError(err, 1)
}

func (t *Transaction) captureError(err error, skip int) {
	if t == nil || err == nil {
		return
	}
	d := errorDataFromError(err, false, callerFrames(skip+1), "")
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil && *t.err.Fatal {
		return
	}
	t.err = &d
}

func (t *Transaction) fail(d ErrorData) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = &d
}

func (t *Transaction) errorData() ErrorData {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil {
		return ErrorData{}
	}
	return *t.err
}

type transactionKey struct{}

func newContext(ctx context.Context, t *Transaction) context.Context {
	return context.WithValue(ctx, transactionKey{}, t)
}

// FromContext returns the [Transaction] of the invocation ctx belongs to.
func FromContext(ctx context.Context) (*Transaction, bool) {
	t, ok := ctx.Value(transactionKey{}).(*Transaction)
	return t, ok
}

// CaptureError is shorthand for calling [Transaction.CaptureError] on the
// [Transaction] in ctx. Outside of a wrapped invocation it does nothing.
func CaptureError(ctx context.Context, err error) {
	t, ok := FromContext(ctx)
	if !ok {
		return
	}
	t.captureError(err, 1)
}
