package config

import "time"

// Config represents the main application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Model     ModelConfig     `yaml:"model"`
	Router    RouterConfig    `yaml:"router"`
	Paths     PathsConfig     `yaml:"paths"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Inspect   InspectConfig   `yaml:"inspect"`
	Agent     AgentConfig     `yaml:"agent"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Runtime version information
	Version string `yaml:"-"`
}

// ServerConfig holds HTTP transport settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// APIConfig holds provider credentials and retry behaviour.
type APIConfig struct {
	GeminiKey     string `yaml:"gemini_key,omitempty"`
	OllamaKey     string `yaml:"ollama_key,omitempty"` // Optional, for remote Ollama servers with auth
	OllamaBaseURL string `yaml:"ollama_base_url,omitempty"`

	// Providers tried in order after the primary one fails.
	Fallbacks []string `yaml:"fallbacks,omitempty"`

	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig paces model calls. RequestsPerMinute 0 disables it.
type RateLimitConfig struct {
	RequestsPerMinute int   `yaml:"requests_per_minute"`
	TokensPerMinute   int64 `yaml:"tokens_per_minute"`
	BurstSize         int   `yaml:"burst_size"`
}

// RetryConfig holds retry settings for API calls.
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// ModelConfig holds model selection and sampling settings.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // gemini, ollama
	Name        string  `yaml:"name"`
	RouterModel string  `yaml:"router_model"` // model used for one-shot classification
	Temperature float32 `yaml:"temperature"`

	// Classification calls use these.
	RouterTemperature float32 `yaml:"router_temperature"`
	Seed              int32   `yaml:"seed"`
	Deterministic     bool    `yaml:"deterministic"`
}

// RouterConfig selects the routing variant.
type RouterConfig struct {
	IncludeCodebase bool `yaml:"include_codebase"` // false = 2-way ui-state/file-ops router
}

// PathsConfig locates the two library roots file operations are scoped to.
type PathsConfig struct {
	RuntimeRoot string `yaml:"runtime_root"`
	CodegenRoot string `yaml:"codegen_root"`

	// Scoped package name -> "runtime" or "codegen".
	Packages map[string]string `yaml:"packages"`
}

// ExecutorConfig selects and tunes the remote command executor.
type ExecutorConfig struct {
	Mode    string        `yaml:"mode"` // local, ssh
	WorkDir string        `yaml:"work_dir"`
	Timeout time.Duration `yaml:"timeout"`
	SSH     SSHConfig     `yaml:"ssh"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// SSHConfig holds SSH connection settings for the ssh executor.
type SSHConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	KeyPath  string `yaml:"key_path"`
	Password string `yaml:"password,omitempty"`
}

// BreakerConfig tunes the circuit breaker around the executor.
type BreakerConfig struct {
	Threshold    int           `yaml:"threshold"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// DiscoveryConfig holds file discovery limits.
type DiscoveryConfig struct {
	MaxResults       int           `yaml:"max_results"`
	NameHits         int           `yaml:"name_hits"`
	ContentHits      int           `yaml:"content_hits"`
	SymbolHits       int           `yaml:"symbol_hits"`
	DependencySeeds  int           `yaml:"dependency_seeds"`
	ImportsPerFile   int           `yaml:"imports_per_file"`
	SourceExtensions []string      `yaml:"source_extensions"`
	Ignore           []string      `yaml:"ignore"` // doublestar patterns dropped from every strategy
	CacheSize        int           `yaml:"cache_size"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
}

// AnalysisConfig holds code analysis limits.
type AnalysisConfig struct {
	MaxFiles    int `yaml:"max_files"`
	MaxSnippets int `yaml:"max_snippets"`
}

// InspectConfig holds polling budgets and snapshot store limits.
type InspectConfig struct {
	EvalInterval  time.Duration `yaml:"eval_interval"`
	EvalAttempts  int           `yaml:"eval_attempts"`
	PropsInterval time.Duration `yaml:"props_interval"`
	PropsAttempts int           `yaml:"props_attempts"`
	MaxChannels   int           `yaml:"max_channels"`
	SnapshotTTL   time.Duration `yaml:"snapshot_ttl"`
}

// AgentConfig holds sub-agent and tool-loop settings.
type AgentConfig struct {
	ToolIterations int  `yaml:"tool_iterations"`
	Parallel       bool `yaml:"parallel"` // run sub-agents concurrently
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"` // empty = stderr
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ShutdownTimeout: DefaultGracefulShutdown,
		},
		API: APIConfig{
			OllamaBaseURL: DefaultOllamaBaseURL,
			Retry: RetryConfig{
				MaxRetries:  DefaultMaxRetries,
				RetryDelay:  DefaultRetryDelay,
				HTTPTimeout: DefaultHTTPTimeout,
			},
		},
		Model: ModelConfig{
			Provider:          "gemini",
			Name:              DefaultModel,
			RouterModel:       DefaultModel,
			Temperature:       0.4,
			RouterTemperature: DefaultRouterTemperature,
			Seed:              DefaultSeed,
		},
		Router: RouterConfig{IncludeCodebase: true},
		Paths: PathsConfig{
			RuntimeRoot: "/workspace/wavemaker-rn-runtime",
			CodegenRoot: "/workspace/wavemaker-rn-codegen",
			Packages: map[string]string{
				"@wavemaker/app-rn-runtime": "runtime",
				"@wavemaker/rn-codegen":     "codegen",
			},
		},
		Executor: ExecutorConfig{
			Mode:    "local",
			Timeout: DefaultCommandTimeout,
			SSH:     SSHConfig{Port: 22},
			Breaker: BreakerConfig{
				Threshold:    DefaultBreakerThreshold,
				ResetTimeout: DefaultBreakerReset,
			},
		},
		Discovery: DiscoveryConfig{
			MaxResults:       DefaultMaxDiscoveryResults,
			NameHits:         20,
			ContentHits:      20,
			SymbolHits:       10,
			DependencySeeds:  5,
			ImportsPerFile:   10,
			SourceExtensions: []string{"ts", "tsx", "js", "jsx"},
			Ignore:           []string{"**/node_modules/**", "**/.git/**", "**/dist/**", "**/*.d.ts"},
			CacheSize:        DefaultCacheSize,
			CacheTTL:         DefaultCacheTTL,
		},
		Analysis: AnalysisConfig{
			MaxFiles:    DefaultMaxAnalyzedFiles,
			MaxSnippets: 5,
		},
		Inspect: InspectConfig{
			EvalInterval:  500 * time.Millisecond,
			EvalAttempts:  10,
			PropsInterval: 2 * time.Second,
			PropsAttempts: 5,
			MaxChannels:   DefaultMaxChannels,
			SnapshotTTL:   DefaultSnapshotTTL,
		},
		Agent: AgentConfig{
			ToolIterations: DefaultToolIterations,
			Parallel:       true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// BaseRoot returns the library root for a base path kind ("runtime" or "codegen").
func (p PathsConfig) BaseRoot(kind string) string {
	if kind == "codegen" {
		return p.CodegenRoot
	}
	return p.RuntimeRoot
}
