// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config provides a functional approach to reading and composing configuration values.
//
// The package is built around Reader[T], a source of configuration values that may or
// may not be present. Readers compose through combinators such as Or, Map and Default.
//
// Value[T] distinguishes "not set" from "set to the zero value", which is what allows
// defaults to apply only when a key is absent.
//
// # Basic Usage
//
// Read the hosts the agent should capture, defaulting to every host:
//
//	hosts, err := config.Read(ctx,
//	    config.Default([]string{"*"}, config.StringsFromString(config.Env("SERVERLESS_ENTERPRISE_SPANS_CAPTURE_HOSTS"))),
//	)
//
// Try multiple sources in order:
//
//	stage, err := config.Read(ctx,
//	    config.Or(
//	        config.Env("SERVERLESS_ENTERPRISE_STAGE_NAME"),
//	        config.Env("SLS_STAGE"),
//	    ),
//	)
//
// # Error Handling
//
// Readers distinguish between three states:
//   - Value is set (returns Value with set=true)
//   - Value is not set (returns Value with set=false, no error)
//   - Error occurred (returns error)
//
// The Read function converts "not set" to ErrValueNotSet for convenience.
package config
