// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package event inspects raw Lambda invocation payloads.
package event

import (
	"encoding/json"
)

// Event types reported by [Event.Type].
const (
	TypeUnknown         = "unknown"
	TypeAlexaSkill      = "aws.alexaskill"
	TypeAuthorizer      = "aws.apigateway.authorizer"
	TypeAPIGatewayHTTP  = "aws.apigateway.http"
	TypeCloudFront      = "aws.cloudfront"
	TypeFirehose        = "aws.firehose"
	TypeKinesis         = "aws.kinesis"
	TypeS3              = "aws.s3"
	TypeCloudWatchEvent = "aws.cloudwatch.event"
	TypeCloudWatchLog   = "aws.cloudwatch.log"
	TypeSNS             = "aws.sns"
	TypeSQS             = "aws.sqs"
)

// Event is a parsed invocation payload. Payloads which are not JSON
// objects produce an empty Event.
type Event struct {
	m map[string]any
}

// Parse parses a raw invocation payload.
func Parse(payload []byte) Event {
	var m map[string]any
	err := json.Unmarshal(payload, &m)
	if err != nil {
		return Event{}
	}
	return Event{m: m}
}

// Type detects which AWS service produced the event.
func (e Event) Type() string {
	detectors := []struct {
		typ    string
		detect func() bool
	}{
		{TypeAlexaSkill, e.isAlexaSkill},
		// must come before API Gateway since they share keys
		{TypeAuthorizer, e.isAuthorizer},
		{TypeAPIGatewayHTTP, e.isAPIGateway},
		{TypeAPIGatewayHTTP, e.isLambdaIntegration},
		{TypeCloudFront, e.isCloudFront},
		{TypeFirehose, e.isFirehose},
		{TypeKinesis, e.firstRecordFrom("eventSource", "aws:kinesis")},
		{TypeS3, e.firstRecordFrom("eventSource", "aws:s3")},
		{TypeCloudWatchEvent, e.isCloudWatchEvent},
		{TypeCloudWatchLog, e.isCloudWatchLog},
		{TypeSNS, e.firstRecordFrom("EventSource", "aws:sns")},
		{TypeSQS, e.firstRecordFrom("eventSource", "aws:sqs")},
	}
	for _, d := range detectors {
		if d.detect() {
			return d.typ
		}
	}
	return TypeUnknown
}

// HTTPRequestID returns the API Gateway request id of a synchronous
// proxy request. Custom authorizer events are never considered requests
// even though they share most of their keys.
// Only key presence is checked, field values are never inspected.
func (e Event) HTTPRequestID() (string, bool) {
	if e.hasAuthorizerKeys() || !e.isAPIGateway() {
		return "", false
	}
	id, ok := e.lookup("requestContext", "requestId")
	if !ok {
		return "", false
	}
	if s, ok := id.(string); ok {
		return s, true
	}
	b, err := json.Marshal(id)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Stage returns the API Gateway stage the request was sent to.
func (e Event) Stage() (string, bool) {
	if !e.isAPIGateway() {
		return "", false
	}
	stage, ok := e.lookup("requestContext", "stage")
	if !ok {
		return "", false
	}
	s, ok := stage.(string)
	return s, ok
}

func (e Event) isAlexaSkill() bool {
	return e.present("session", "attributes") &&
		e.present("session", "user") &&
		e.present("context", "System") &&
		e.present("request", "requestId")
}

func (e Event) isAuthorizer() bool {
	arn, _ := e.lookup("methodArn")
	if s, ok := arn.(string); !ok || s == "" {
		return false
	}
	typ, _ := e.lookup("type")
	return typ == "TOKEN" || typ == "REQUEST"
}

func (e Event) hasAuthorizerKeys() bool {
	if !e.hasKeys("methodArn") {
		return false
	}
	typ, _ := e.lookup("type")
	return typ == "TOKEN" || typ == "REQUEST"
}

func (e Event) isAPIGateway() bool {
	return e.hasKeys("path", "headers", "requestContext", "resource", "httpMethod")
}

func (e Event) isLambdaIntegration() bool {
	return e.hasKeys("body", "method", "principalId", "stage") &&
		e.present("identity", "userAgent") &&
		e.present("identity", "sourceIp") &&
		e.present("identity", "accountId")
}

func (e Event) isCloudFront() bool {
	return e.present("Records", "0", "cf")
}

func (e Event) isFirehose() bool {
	arn, _ := e.lookup("deliveryStreamArn")
	if s, ok := arn.(string); !ok || s == "" {
		return false
	}
	return e.present("records", "0", "kinesisRecordMetadata")
}

func (e Event) isCloudWatchEvent() bool {
	return e.present("source") && e.present("detail")
}

func (e Event) isCloudWatchLog() bool {
	return e.present("awslogs", "data")
}

func (e Event) firstRecordFrom(key, source string) func() bool {
	return func() bool {
		v, _ := e.lookup("Records", "0", key)
		return v == source
	}
}

func (e Event) hasKeys(keys ...string) bool {
	if e.m == nil {
		return false
	}
	for _, k := range keys {
		if _, ok := e.m[k]; !ok {
			return false
		}
	}
	return true
}

func (e Event) present(path ...string) bool {
	v, ok := e.lookup(path...)
	return ok && v != nil
}

// lookup walks objects by key and arrays by index "0".
func (e Event) lookup(path ...string) (any, bool) {
	var cur any = e.m
	if e.m == nil {
		return nil, false
	}
	for _, p := range path {
		switch x := cur.(type) {
		case map[string]any:
			v, ok := x[p]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			if p != "0" || len(x) == 0 {
				return nil, false
			}
			cur = x[0]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Detect is shorthand for Parse(payload).Type().
func Detect(payload []byte) string {
	return Parse(payload).Type()
}

// HTTPRequestID is shorthand for Parse(payload).HTTPRequestID().
func HTTPRequestID(payload []byte) (string, bool) {
	return Parse(payload).HTTPRequestID()
}
