// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package slsagent provides a per-invocation telemetry agent for AWS Lambda
// functions written in Go.
//
// An [Agent] wraps a [lambda.Handler] so that every invocation emits exactly
// one transaction record to standard output. The record carries timing,
// identity metadata, the outcome of the invocation and a span for every
// instrumented outbound call made while the handler ran.
//
// # Basic Usage
//
//	func main() {
//	    cfg, err := slsagent.ConfigFromEnv(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    agent := slsagent.New(cfg)
//
//	    awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    agent.InstrumentAWS(&awsCfg)
//	    agent.InstrumentDefaultTransport()
//
//	    lambda.Start(slsagent.WrapFunc(agent, handle, "my-function", 6*time.Second))
//	}
//
// # Outcomes
//
// A handler which returns an error or panics produces a record of type
// "error" with errorFatal set. The error is returned, or the panic
// re-raised, unchanged once the record has been written. Errors the
// handler handles itself may still be reported with [CaptureError], which
// marks the record as an error without affecting the invocation result.
//
// # Instrumentation
//
// Outbound calls are captured by decorating the clients which make them,
// see [Agent.InstrumentAWS], [Agent.Transport] and [Agent.WrapDoer].
// Which hosts get a span is controlled by [Config.CaptureHosts] and
// [Config.IgnoreHosts].
package slsagent
