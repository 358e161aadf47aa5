package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s=%s]: %s", e.Field, e.Value, e.Message)
}

type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
	Valid    bool
}

func (r *ValidationResult) AddError(field, value, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
	r.Valid = false
}

func (r *ValidationResult) AddWarning(field, value, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Value: value, Message: message})
}

// Validate checks the configuration for outright errors and suspicious
// values. Errors should stop startup; warnings are logged and tolerated.
func (c *Config) Validate() ValidationResult {
	result := ValidationResult{Valid: true}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		result.AddError("server.port", strconv.Itoa(c.Server.Port), "port must be between 1 and 65535")
	}
	if c.Server.HeartbeatInterval < 0 {
		result.AddError("server.heartbeatInterval", strconv.Itoa(c.Server.HeartbeatInterval), "must not be negative")
	}
	if c.Server.MemoryThreshold <= 0 {
		result.AddWarning("server.memoryThreshold", strconv.Itoa(c.Server.MemoryThreshold), "non-positive threshold disables pressure hints")
	}

	switch c.Rotation.Strategy {
	case StrategyRoundRobin, StrategyQuotaExhausted:
	case StrategyRequestCount:
		if c.Rotation.RequestCount <= 0 {
			result.AddError("rotation.requestCount", strconv.Itoa(c.Rotation.RequestCount),
				"must be positive for REQUEST_COUNT")
		}
	default:
		result.AddError("rotation.strategy", c.Rotation.Strategy,
			"must be one of: ROUND_ROBIN, QUOTA_EXHAUSTED, REQUEST_COUNT")
	}

	for field, value := range map[string]string{
		"api.url":         c.API.URL,
		"api.modelsUrl":   c.API.ModelsURL,
		"api.noStreamUrl": c.API.NoStreamURL,
	} {
		if value == "" {
			result.AddError(field, value, "required")
			continue
		}
		if u, err := url.Parse(value); err != nil || u.Scheme == "" || u.Host == "" {
			result.AddError(field, value, "must be an absolute URL")
		}
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "file", "":
	case "redis":
		if c.Storage.RedisURL == "" {
			result.AddError("storage.redisURL", "", "required for the redis backend")
		}
	case "mongodb":
		if c.Storage.MongoURI == "" {
			result.AddError("storage.mongoURI", "", "required for the mongodb backend")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			result.AddError("storage.postgresDSN", "", "required for the postgres backend")
		}
	default:
		result.AddError("storage.backend", c.Storage.Backend,
			"must be one of: file, redis, mongodb, postgres")
	}

	if c.Secrets.Proxy != "" {
		if _, err := url.Parse(c.Secrets.Proxy); err != nil {
			result.AddError("PROXY", c.Secrets.Proxy, "invalid proxy URL")
		}
	}

	if c.Other.RetryTimes < 0 || c.Other.RetryTimes > 10 {
		result.AddWarning("other.retryTimes", strconv.Itoa(c.Other.RetryTimes),
			"should be between 0 and 10")
	}

	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		result.AddError("ratelimit", fmt.Sprintf("rps=%d burst=%d", c.RateLimit.RPS, c.RateLimit.Burst),
			"rps and burst must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst == 0 {
		result.AddWarning("ratelimit.burst", "0", "burst defaults to rps when unset")
	}

	if c.Monitoring.EnableTracing && c.Monitoring.OTLPEndpoint == "" {
		result.AddWarning("monitoring.otlpEndpoint", "", "tracing enabled without an OTLP endpoint")
	}

	if c.Secrets.APIKey == "" {
		result.AddWarning("API_KEY", "", "no API key configured, /v1 endpoints are open")
	}

	return result
}
