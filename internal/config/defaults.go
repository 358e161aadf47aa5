package config

import (
	"time"

	"antigravity2api-go/internal/constants"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8045,
			HeartbeatInterval: int(constants.DefaultHeartbeatInterval / time.Second),
			MemoryThreshold:   1024,
			MaxRequestSize:    64 << 20,
		},
		Rotation: RotationConfig{
			Strategy:     StrategyRoundRobin,
			RequestCount: 10,
		},
		API: APIConfig{
			URL:               constants.DefaultStreamURL,
			ModelsURL:         constants.DefaultModelsURL,
			NoStreamURL:       constants.DefaultNoStreamURL,
			Host:              constants.DefaultAPIHost,
			UserAgent:         constants.DefaultUserAgent,
			OAuthClientID:     constants.DefaultOAuthClientID,
			OAuthClientSecret: constants.DefaultOAuthClientSecret,
		},
		Cache: CacheConfig{
			ModelListTTL: 3600,
		},
		Other: OtherConfig{
			Timeout:    int(constants.UpstreamUnaryTimeout / time.Second),
			RetryTimes: constants.DefaultRetryTimes,
			DataDir:    "./data",
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		Monitoring: MonitoringConfig{
			EnableMetrics: true,
		},
	}
}

// applyDefaults fills zero-valued fields after a file load so partial files
// stay valid.
func (c *Config) applyDefaults() {
	def := defaultConfig()
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.HeartbeatInterval == 0 {
		c.Server.HeartbeatInterval = def.Server.HeartbeatInterval
	}
	if c.Server.MemoryThreshold == 0 {
		c.Server.MemoryThreshold = def.Server.MemoryThreshold
	}
	if c.Server.MaxRequestSize == 0 {
		c.Server.MaxRequestSize = def.Server.MaxRequestSize
	}
	if c.Rotation.Strategy == "" {
		c.Rotation.Strategy = def.Rotation.Strategy
	}
	if c.Rotation.RequestCount == 0 {
		c.Rotation.RequestCount = def.Rotation.RequestCount
	}
	if c.API.URL == "" {
		c.API.URL = def.API.URL
	}
	if c.API.ModelsURL == "" {
		c.API.ModelsURL = def.API.ModelsURL
	}
	if c.API.NoStreamURL == "" {
		c.API.NoStreamURL = def.API.NoStreamURL
	}
	if c.API.Host == "" {
		c.API.Host = def.API.Host
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = def.API.UserAgent
	}
	if c.API.OAuthClientID == "" {
		c.API.OAuthClientID = def.API.OAuthClientID
	}
	if c.API.OAuthClientSecret == "" {
		c.API.OAuthClientSecret = def.API.OAuthClientSecret
	}
	if c.Cache.ModelListTTL == 0 {
		c.Cache.ModelListTTL = def.Cache.ModelListTTL
	}
	if c.Other.Timeout == 0 {
		c.Other.Timeout = def.Other.Timeout
	}
	if c.Other.RetryTimes == 0 {
		c.Other.RetryTimes = def.Other.RetryTimes
	}
	if c.Other.DataDir == "" {
		c.Other.DataDir = def.Other.DataDir
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
}

// Accessors below resolve generation defaults, falling back to the built-in
// constants when the config file says nothing.

func (d DefaultsConfig) GetTemperature() float64 {
	if d.Temperature != nil {
		return *d.Temperature
	}
	return constants.DefaultTemperature
}

func (d DefaultsConfig) GetTopP() float64 {
	if d.TopP != nil {
		return *d.TopP
	}
	return constants.DefaultTopP
}

func (d DefaultsConfig) GetTopK() int {
	if d.TopK != nil {
		return *d.TopK
	}
	return constants.DefaultTopK
}

func (d DefaultsConfig) GetMaxTokens() int {
	if d.MaxTokens != nil {
		return *d.MaxTokens
	}
	return constants.DefaultMaxTokens
}

func (d DefaultsConfig) GetThinkingBudget() int {
	if d.ThinkingBudget != nil {
		return *d.ThinkingBudget
	}
	return constants.DefaultThinkingBudget
}

// GetUseContextSystemPrompt defaults to true when the config says nothing.
func (o OtherConfig) GetUseContextSystemPrompt() bool {
	if o.UseContextSystemPrompt != nil {
		return *o.UseContextSystemPrompt
	}
	return true
}

// HeartbeatDuration returns the SSE heartbeat cadence.
func (s ServerConfig) HeartbeatDuration() time.Duration {
	if s.HeartbeatInterval <= 0 {
		return constants.DefaultHeartbeatInterval
	}
	return time.Duration(s.HeartbeatInterval) * time.Second
}

// TimeoutDuration returns the unary upstream timeout.
func (o OtherConfig) TimeoutDuration() time.Duration {
	if o.Timeout <= 0 {
		return constants.UpstreamUnaryTimeout
	}
	return time.Duration(o.Timeout) * time.Second
}

// ModelListTTLDuration returns the default model-list cache TTL.
func (c CacheConfig) ModelListTTLDuration() time.Duration {
	if c.ModelListTTL <= 0 {
		return time.Hour
	}
	return time.Duration(c.ModelListTTL) * time.Second
}
