// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package try keeps agent side effects from failing an invocation.
package try

import (
	"errors"
	"fmt"
	"io"
)

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("recovered from panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover must be deferred. It joins any recovered panic into err.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	*err = join(*err, PanicError{Value: r})
}

// Do calls f and reports a panic inside it as a [PanicError].
func Do(f func() error) (err error) {
	defer Recover(&err)
	return f()
}

type CloseError struct {
	Cause error
}

func (e CloseError) Error() string {
	return fmt.Sprintf("failed to close: %s", e.Cause)
}

func (e CloseError) Unwrap() error {
	return e.Cause
}

// Close closes v, if it is an [io.Closer], and joins a failure into err.
func Close(err *error, v any) {
	c, ok := v.(io.Closer)
	if !ok {
		return
	}
	cerr := c.Close()
	if cerr == nil {
		return
	}
	*err = join(*err, CloseError{Cause: cerr})
}

func join(err, next error) error {
	if err == nil {
		return next
	}
	return errors.Join(err, next)
}
