package config

import "time"

// Default configuration values.
const (
	DefaultAddr          = ":8787"
	DefaultModel         = "gemini-2.5-flash"
	DefaultOllamaBaseURL = "http://localhost:11434"

	// Classification
	DefaultRouterTemperature = 0.1
	DefaultSeed              = 42

	// Retry settings
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultHTTPTimeout = 120 * time.Second

	// Executor
	DefaultCommandTimeout   = 30 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerReset     = 30 * time.Second

	// Discovery and analysis bounds
	DefaultMaxDiscoveryResults = 30
	DefaultMaxAnalyzedFiles    = 10
	DefaultCacheSize           = 256
	DefaultCacheTTL            = 2 * time.Minute

	// Snapshot store
	DefaultMaxChannels = 512
	DefaultSnapshotTTL = 6 * time.Hour

	DefaultToolIterations   = 8
	DefaultGracefulShutdown = 10 * time.Second
)
