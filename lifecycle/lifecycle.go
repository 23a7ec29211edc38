// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lifecycle provides helpers for defining actions to execute
// after a wrapped Lambda invocation has emitted its transaction record.
package lifecycle

import (
	"context"
	"errors"
	"sync"
)

// Hook represents functionality that needs to be performed at a
// specific point of an invocation, e.g. flushing an OTel exporter.
type Hook interface {
	Run(context.Context) error
}

// HookFunc is a func variant of the [Hook] interface.
type HookFunc func(context.Context) error

// Run implements the [Hook] interface.
func (f HookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type multiHook []Hook

func (mh multiHook) Run(ctx context.Context) error {
	var errs []error
	for _, h := range mh {
		if h == nil {
			continue
		}
		err := h.Run(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// MultiHook returns a [Hook] that's the logical concatenation
// of the provided [Hook]s. They're applied sequentially and every
// [Hook] runs even if a previous one failed. Nil hooks are skipped.
func MultiHook(hooks ...Hook) Hook {
	return multiHook(hooks)
}

// Context collects hooks registered during a single invocation.
// It is safe to register hooks from multiple goroutines.
type Context struct {
	mu          sync.Mutex
	postInvokes multiHook
}

// PostInvoke returns the [Hook] composed of every registered post invoke hook.
func (c *Context) PostInvoke() Hook {
	c.mu.Lock()
	defer c.mu.Unlock()
	hooks := make(multiHook, len(c.postInvokes))
	copy(hooks, c.postInvokes)
	return hooks
}

// OnPostInvoke registers the given [Hook] to be executed once the
// current invocation's record has been emitted.
func (c *Context) OnPostInvoke(hook Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postInvokes = append(c.postInvokes, hook)
}

type key struct{}

var contextKey = &key{}

// NewContext returns a new [context.Context] containing the lifecycle [Context].
func NewContext(parent context.Context, c *Context) context.Context {
	return context.WithValue(parent, contextKey, c)
}

// FromContext tries to extract a lifecycle [Context] from the given [context.Context].
func FromContext(ctx context.Context) (*Context, bool) {
	lc, ok := ctx.Value(contextKey).(*Context)
	return lc, ok
}
