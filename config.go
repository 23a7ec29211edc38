// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slsagent

import (
	"context"

	"github.com/z5labs/slsagent/config"
	"github.com/z5labs/slsagent/instrument"
)

// Environment variables read by [ConfigFromEnv].
const (
	EnvCaptureHosts      = "SERVERLESS_ENTERPRISE_SPANS_CAPTURE_HOSTS"
	EnvIgnoreHosts       = "SERVERLESS_ENTERPRISE_SPANS_IGNORE_HOSTS"
	EnvCaptureAWSSDKHTTP = "SERVERLESS_ENTERPRISE_SPANS_CAPTURE_AWS_SDK_HTTP"
	EnvTenantID          = "SERVERLESS_ENTERPRISE_TENANT_ID"
	EnvApplicationName   = "SERVERLESS_ENTERPRISE_APPLICATION_NAME"
	EnvAppUID            = "SERVERLESS_ENTERPRISE_APP_UID"
	EnvTenantUID         = "SERVERLESS_ENTERPRISE_TENANT_UID"
	EnvDeploymentUID     = "SERVERLESS_ENTERPRISE_DEPLOYMENT_UID"
	EnvServiceName       = "SERVERLESS_ENTERPRISE_SERVICE_NAME"
	EnvStageName         = "SERVERLESS_ENTERPRISE_STAGE_NAME"
	EnvPluginVersion     = "SERVERLESS_ENTERPRISE_PLUGIN_VERSION"
)

// Config holds the identity of the deployed function and the span
// capture settings. It is fixed for the lifetime of an [Agent].
type Config struct {
	TenantID        string
	ApplicationName string
	AppUID          string
	TenantUID       string
	DeploymentUID   string
	ServiceName     string
	StageName       string
	PluginVersion   string

	// CaptureHosts lists glob patterns of hosts to record spans for.
	// A nil slice captures every host while an empty, non-nil slice
	// captures none.
	CaptureHosts []string

	// IgnoreHosts lists glob patterns of hosts which are never recorded,
	// even when they match CaptureHosts.
	IgnoreHosts []string

	// CaptureAWSSDKHTTP records an "http" span for the HTTP requests
	// sent by the AWS SDK in addition to the "aws" span of the call.
	CaptureAWSSDKHTTP bool
}

// ConfigFromEnv reads a [Config] from the process environment.
func ConfigFromEnv(ctx context.Context) (Config, error) {
	var cfg Config
	identity := []struct {
		key string
		dst *string
	}{
		{EnvTenantID, &cfg.TenantID},
		{EnvApplicationName, &cfg.ApplicationName},
		{EnvAppUID, &cfg.AppUID},
		{EnvTenantUID, &cfg.TenantUID},
		{EnvDeploymentUID, &cfg.DeploymentUID},
		{EnvServiceName, &cfg.ServiceName},
		{EnvStageName, &cfg.StageName},
		{EnvPluginVersion, &cfg.PluginVersion},
	}
	for _, field := range identity {
		v, err := config.Read(ctx, config.Default("", config.Env(field.key)))
		if err != nil {
			return Config{}, ConfigError{Key: field.key, Cause: err}
		}
		*field.dst = v
	}

	capture, err := config.Read(ctx, config.Default(
		[]string{"*"},
		config.StringsFromString(config.Env(EnvCaptureHosts)),
	))
	if err != nil {
		return Config{}, ConfigError{Key: EnvCaptureHosts, Cause: err}
	}
	cfg.CaptureHosts = capture

	ignore, err := config.Read(ctx, config.Default(
		[]string{},
		config.StringsFromString(config.Env(EnvIgnoreHosts)),
	))
	if err != nil {
		return Config{}, ConfigError{Key: EnvIgnoreHosts, Cause: err}
	}
	cfg.IgnoreHosts = ignore

	captureSDK, err := config.Read(ctx, config.Default(
		false,
		config.NonEmpty(config.Env(EnvCaptureAWSSDKHTTP)),
	))
	if err != nil {
		return Config{}, ConfigError{Key: EnvCaptureAWSSDKHTTP, Cause: err}
	}
	cfg.CaptureAWSSDKHTTP = captureSDK

	return cfg, nil
}

func (c Config) instrumentOptions() []instrument.Option {
	capture := c.CaptureHosts
	if capture == nil {
		capture = []string{"*"}
	}
	return []instrument.Option{
		instrument.Hosts(instrument.NewHostFilter(capture, c.IgnoreHosts)),
		instrument.CaptureAWSSDKHTTP(c.CaptureAWSSDKHTTP),
	}
}
