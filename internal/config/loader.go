package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"wavepulse/internal/fileutil"
)

// Load loads configuration from the given file (or the default location),
// a .env file in the working directory, and environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = getConfigPath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	loadFromEnv(cfg)
	if err := cfg.Discovery.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getConfigPath returns the path to the config file.
func getConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "wavepulse", "config.yaml")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "wavepulse", "config.yaml")
}

// GetConfigPath returns the default config file path.
func GetConfigPath() string {
	return getConfigPath()
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv applies environment overrides.
func loadFromEnv(cfg *Config) {
	if key := os.Getenv("WAVEPULSE_GEMINI_KEY"); key != "" {
		cfg.API.GeminiKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.API.GeminiKey == "" {
		cfg.API.GeminiKey = key
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cfg.API.OllamaBaseURL = host
	}
	if provider := os.Getenv("WAVEPULSE_PROVIDER"); provider != "" {
		cfg.Model.Provider = provider
	}
	if model := os.Getenv("WAVEPULSE_MODEL"); model != "" {
		cfg.Model.Name = model
		cfg.Model.RouterModel = model
	}
	if addr := os.Getenv("WAVEPULSE_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if root := os.Getenv("WAVEPULSE_RUNTIME_ROOT"); root != "" {
		cfg.Paths.RuntimeRoot = root
	}
	if root := os.Getenv("WAVEPULSE_CODEGEN_ROOT"); root != "" {
		cfg.Paths.CodegenRoot = root
	}
	if mode := os.Getenv("WAVEPULSE_EXECUTOR"); mode != "" {
		cfg.Executor.Mode = mode
	}
	if v := os.Getenv("WAVEPULSE_DETERMINISTIC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Model.Deterministic = b
		}
	}
	if lvl := os.Getenv("WAVEPULSE_LOG_LEVEL"); lvl != "" {
		cfg.Logging.Level = lvl
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Discovery.Validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Model.Provider) {
	case "gemini":
		if c.API.GeminiKey == "" {
			return ErrMissingAuth
		}
	case "ollama":
	default:
		return ErrUnknownProvider
	}

	switch c.Executor.Mode {
	case "local":
	case "ssh":
		if c.Executor.SSH.Host == "" {
			return ErrMissingSSHHost
		}
	default:
		return ErrUnknownExecutor
	}

	if c.Paths.RuntimeRoot == "" && c.Paths.CodegenRoot == "" {
		return ErrMissingRoots
	}
	return nil
}

// Validate checks the discovery bounds. Results are capped at
// DefaultMaxDiscoveryResults and every per-strategy limit must be positive.
func (d DiscoveryConfig) Validate() error {
	if d.MaxResults < 1 || d.MaxResults > DefaultMaxDiscoveryResults {
		return ErrDiscoveryMaxResults
	}
	for _, n := range []int{d.NameHits, d.ContentHits, d.SymbolHits, d.DependencySeeds, d.ImportsPerFile} {
		if n < 1 {
			return ErrDiscoveryLimits
		}
	}
	return nil
}

// ConfigError is a configuration validation error.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrMissingAuth     ConfigError = "missing authentication: set GEMINI_API_KEY or api.gemini_key, or use provider ollama"
	ErrUnknownProvider ConfigError = "model.provider must be gemini or ollama"
	ErrUnknownExecutor ConfigError = "executor.mode must be local or ssh"
	ErrMissingSSHHost  ConfigError = "executor.ssh.host is required for the ssh executor"
	ErrMissingRoots    ConfigError = "at least one of paths.runtime_root or paths.codegen_root is required"

	ErrDiscoveryMaxResults ConfigError = "discovery.max_results must be between 1 and 30"
	ErrDiscoveryLimits     ConfigError = "discovery name_hits, content_hits, symbol_hits, dependency_seeds and imports_per_file must be positive"
)

// Save writes the configuration to path (or the default location).
func (c *Config) Save(path string) error {
	if path == "" {
		path = getConfigPath()
	}
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}

	// 0700: the file may hold API keys
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileutil.AtomicWrite(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
