package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("WP_TEST_ROOT", "/srv/runtime")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  provider: ollama
  name: qwen2.5-coder
router:
  include_codebase: false
paths:
  runtime_root: ${WP_TEST_ROOT}
inspect:
  eval_attempts: 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Model.Provider)
	assert.Equal(t, "qwen2.5-coder", cfg.Model.Name)
	assert.False(t, cfg.Router.IncludeCodebase)
	assert.Equal(t, "/srv/runtime", cfg.Paths.RuntimeRoot)
	assert.Equal(t, 3, cfg.Inspect.EvalAttempts)
	// untouched defaults survive
	assert.Equal(t, 500*time.Millisecond, cfg.Inspect.EvalInterval)
	assert.Equal(t, 30, cfg.Discovery.MaxResults)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.InDelta(t, 0.1, float64(cfg.Model.RouterTemperature), 1e-6)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WAVEPULSE_MODEL", "gemini-2.5-pro")
	t.Setenv("WAVEPULSE_EXECUTOR", "ssh")
	t.Setenv("WAVEPULSE_DETERMINISTIC", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model.RouterModel)
	assert.True(t, cfg.Model.Deterministic)
	assert.Equal(t, ErrMissingSSHHost, func() error {
		cfg.API.GeminiKey = "k"
		return cfg.Validate()
	}())
}

func TestLoadRejectsDiscoveryBounds(t *testing.T) {
	cases := map[string]ConfigError{
		"max_results: 0":      ErrDiscoveryMaxResults,
		"max_results: 100":    ErrDiscoveryMaxResults,
		"name_hits: 0":        ErrDiscoveryLimits,
		"content_hits: 0":     ErrDiscoveryLimits,
		"dependency_seeds: 0": ErrDiscoveryLimits,
		"symbol_hits: -1":     ErrDiscoveryLimits,
	}
	for body, want := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("discovery:\n  "+body+"\n"), 0o644))

		cfg, err := Load(path)
		assert.ErrorIs(t, err, want, body)
		assert.Nil(t, cfg, body)
	}

	cfg := DefaultConfig()
	cfg.Model.Provider = "ollama"
	cfg.Paths.RuntimeRoot = "/srv/runtime"
	cfg.Discovery.MaxResults = 31
	assert.Equal(t, ErrDiscoveryMaxResults, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Paths.CodegenRoot = "/srv/codegen"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/codegen", loaded.Paths.CodegenRoot)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestBaseRoot(t *testing.T) {
	p := PathsConfig{RuntimeRoot: "/r", CodegenRoot: "/c"}
	assert.Equal(t, "/c", p.BaseRoot("codegen"))
	assert.Equal(t, "/r", p.BaseRoot("runtime"))
	assert.Equal(t, "/r", p.BaseRoot(""))
}
