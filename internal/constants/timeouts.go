package constants

import "time"

const (
	// UpstreamUnaryTimeout bounds non-streaming upstream calls when config leaves timeout unset.
	UpstreamUnaryTimeout = 180 * time.Second
	// DefaultHeartbeatInterval is the SSE comment heartbeat period.
	DefaultHeartbeatInterval = 15 * time.Second
	// ServerShutdownTimeout bounds graceful HTTP server shutdown.
	ServerShutdownTimeout = 30 * time.Second
	// ServerGracefulWait defines post-shutdown wait window for cleanup.
	ServerGracefulWait = 2 * time.Second
	// AccountPersistInterval coalesces account-file writes.
	AccountPersistInterval = 1 * time.Second
	// AccountWatchDebounce delays reloads after file change events.
	AccountWatchDebounce = 300 * time.Millisecond
	// PressureSampleInterval is the default memstats sampling period.
	PressureSampleInterval = 30 * time.Second
)
