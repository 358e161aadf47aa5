// Package config loads, validates, watches, and persists the gateway
// configuration. Files may be JSON or YAML; secrets never live in the file
// and come from the environment or an .env file next to the process.
package config

// Config is the full runtime configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Rotation   RotationConfig   `yaml:"rotation" json:"rotation"`
	API        APIConfig        `yaml:"api" json:"api"`
	Defaults   DefaultsConfig   `yaml:"defaults" json:"defaults"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Other      OtherConfig      `yaml:"other" json:"other"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Monitoring MonitoringConfig `yaml:"monitoring" json:"monitoring"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit" json:"ratelimit"`

	// Secrets are environment-only and excluded from marshalling.
	Secrets Secrets `yaml:"-" json:"-"`
}

type ServerConfig struct {
	Host              string `yaml:"host" json:"host"`
	Port              int    `yaml:"port" json:"port"`
	HeartbeatInterval int    `yaml:"heartbeatInterval" json:"heartbeatInterval"` // seconds
	MemoryThreshold   int    `yaml:"memoryThreshold" json:"memoryThreshold"`     // MB
	MaxRequestSize    int64  `yaml:"maxRequestSize" json:"maxRequestSize"`       // bytes
}

// Rotation strategies for the account pool.
const (
	StrategyRoundRobin     = "ROUND_ROBIN"
	StrategyQuotaExhausted = "QUOTA_EXHAUSTED"
	StrategyRequestCount   = "REQUEST_COUNT"
)

type RotationConfig struct {
	Strategy     string `yaml:"strategy" json:"strategy"`
	RequestCount int    `yaml:"requestCount" json:"requestCount"`
}

type APIConfig struct {
	URL               string `yaml:"url" json:"url"`
	ModelsURL         string `yaml:"modelsUrl" json:"modelsUrl"`
	NoStreamURL       string `yaml:"noStreamUrl" json:"noStreamUrl"`
	Host              string `yaml:"host" json:"host"`
	UserAgent         string `yaml:"userAgent" json:"userAgent"`
	OAuthClientID     string `yaml:"oauthClientId" json:"oauthClientId"`
	OAuthClientSecret string `yaml:"oauthClientSecret" json:"oauthClientSecret"`
}

// DefaultsConfig fills generation parameters the client leaves out. Pointer
// fields distinguish "absent" from a deliberate zero.
type DefaultsConfig struct {
	Temperature    *float64 `yaml:"temperature" json:"temperature,omitempty"`
	TopP           *float64 `yaml:"topP" json:"topP,omitempty"`
	TopK           *int     `yaml:"topK" json:"topK,omitempty"`
	MaxTokens      *int     `yaml:"maxTokens" json:"maxTokens,omitempty"`
	ThinkingBudget *int     `yaml:"thinkingBudget" json:"thinkingBudget,omitempty"`
}

type CacheConfig struct {
	ModelListTTL int `yaml:"modelListTTL" json:"modelListTTL"` // seconds
}

type OtherConfig struct {
	Timeout            int  `yaml:"timeout" json:"timeout"` // seconds, unary upstream calls
	RetryTimes         int  `yaml:"retryTimes" json:"retryTimes"`
	SkipProjectIDFetch bool `yaml:"skipProjectIdFetch" json:"skipProjectIdFetch"`
	// UseContextSystemPrompt is a pointer so an absent key keeps the true
	// default; false means request system prompts are dropped.
	UseContextSystemPrompt *bool  `yaml:"useContextSystemPrompt" json:"useContextSystemPrompt,omitempty"`
	PassSignatureToClient  bool   `yaml:"passSignatureToClient" json:"passSignatureToClient"`
	DataDir                string `yaml:"dataDir" json:"dataDir"`
	Debug                  bool   `yaml:"debug" json:"debug"`
	LogFile                string `yaml:"logFile" json:"logFile"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend" json:"backend"` // file | redis | mongodb | postgres
	RedisURL    string `yaml:"redisURL" json:"redisURL"`
	MongoURI    string `yaml:"mongoURI" json:"mongoURI"`
	PostgresDSN string `yaml:"postgresDSN" json:"postgresDSN"`
}

type MonitoringConfig struct {
	EnableMetrics bool   `yaml:"enableMetrics" json:"enableMetrics"`
	EnableTracing bool   `yaml:"enableTracing" json:"enableTracing"`
	OTLPEndpoint  string `yaml:"otlpEndpoint" json:"otlpEndpoint"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps" json:"rps"`
	Burst int `yaml:"burst" json:"burst"`
}

// Secrets carries environment-sourced sensitive values.
type Secrets struct {
	APIKey            string
	AdminUsername     string
	AdminPassword     string
	JWTSecret         string
	Proxy             string
	SystemInstruction string
	ImageBaseURL      string
}
