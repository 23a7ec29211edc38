// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slsagent

import "fmt"

// ConfigError is returned by [ConfigFromEnv] when an environment
// variable holds a value which can not be parsed.
type ConfigError struct {
	Key   string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ConfigError) Error() string {
	return fmt.Sprintf("failed to read config key %s: %s", e.Key, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigError) Unwrap() error {
	return e.Cause
}

// EmitError is logged when a transaction record could not be written.
// It never reaches the Lambda host.
type EmitError struct {
	RequestID string
	Cause     error
}

// Error implements the [builtin.error] interface.
func (e EmitError) Error() string {
	return fmt.Sprintf("failed to emit transaction record for request %s: %s", e.RequestID, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e EmitError) Unwrap() error {
	return e.Cause
}
