// Package remote is the single filesystem primitive of the assistant: a shell
// command run in an optional working directory that returns raw text. Every
// higher file operation is a command string built and parsed in FileOps.
package remote

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"wavepulse/internal/config"
	"wavepulse/internal/logging"
	"wavepulse/internal/robustness"
	"wavepulse/internal/ssh"
)

// ErrEmptyCommand is returned for a blank command string.
var ErrEmptyCommand = errors.New("empty command")

// Executor runs a shell command and returns its combined output. The error is
// reserved for transport failures; a non-zero exit status is not an error.
type Executor interface {
	Execute(ctx context.Context, command, workDir string) (string, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, command, workDir string) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, command, workDir string) (string, error) {
	return f(ctx, command, workDir)
}

// LocalExecutor runs commands with sh on this machine.
type LocalExecutor struct {
	Shell string
}

func (e LocalExecutor) Execute(ctx context.Context, command, workDir string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", ErrEmptyCommand
	}
	shell := e.Shell
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			logging.Debug("command exited non-zero", "code", exitErr.ExitCode(), "command", truncate(command, 120))
			return string(out), nil
		}
		return string(out), fmt.Errorf("failed to run command: %w", err)
	}
	return string(out), nil
}

// SSHExecutor runs commands on a remote host through a pooled connection.
type SSHExecutor struct {
	pool *ssh.Pool
	cfg  ssh.Config
}

// NewSSHExecutor creates an executor for the host described by cfg.
func NewSSHExecutor(pool *ssh.Pool, cfg ssh.Config) *SSHExecutor {
	return &SSHExecutor{pool: pool, cfg: cfg}
}

func (e *SSHExecutor) Execute(ctx context.Context, command, workDir string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", ErrEmptyCommand
	}
	client, err := e.pool.Get(ctx, e.cfg)
	if err != nil {
		return "", err
	}
	if workDir != "" {
		command = "cd " + Quote(workDir) + " && " + command
	}
	out, code, err := client.Execute(ctx, command)
	if err != nil {
		return out, err
	}
	if code != 0 {
		logging.Debug("remote command exited non-zero", "code", code, "command", truncate(command, 120))
	}
	return out, nil
}

// GuardedExecutor applies a per-command timeout and a circuit breaker to an
// inner executor.
type GuardedExecutor struct {
	inner   Executor
	breaker *robustness.CircuitBreaker
	timeout time.Duration
}

// NewGuardedExecutor wraps inner.
func NewGuardedExecutor(inner Executor, breaker *robustness.CircuitBreaker, timeout time.Duration) *GuardedExecutor {
	return &GuardedExecutor{inner: inner, breaker: breaker, timeout: timeout}
}

func (g *GuardedExecutor) Execute(ctx context.Context, command, workDir string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	var out string
	err := g.breaker.Execute(ctx, func() error {
		var runErr error
		out, runErr = g.inner.Execute(ctx, command, workDir)
		return runErr
	})
	if err != nil {
		logging.Warn("command failed", "command", truncate(command, 120), "dir", workDir, "error", err)
		return out, err
	}
	logging.Debug("command executed", "command", truncate(command, 120), "dir", workDir, "duration", time.Since(start))
	return out, nil
}

// New builds the executor selected by cfg. The returned close function
// releases pooled connections.
func New(cfg config.ExecutorConfig) (Executor, func(), error) {
	breaker := robustness.NewCircuitBreaker(cfg.Breaker.Threshold, cfg.Breaker.ResetTimeout)

	switch cfg.Mode {
	case "", "local":
		return NewGuardedExecutor(LocalExecutor{}, breaker, cfg.Timeout), func() {}, nil
	case "ssh":
		pool := ssh.NewPool(0)
		inner := NewSSHExecutor(pool, ssh.Config{
			Host:     cfg.SSH.Host,
			Port:     cfg.SSH.Port,
			User:     cfg.SSH.User,
			KeyPath:  cfg.SSH.KeyPath,
			Password: cfg.SSH.Password,
		})
		return NewGuardedExecutor(inner, breaker, cfg.Timeout), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown executor mode %q", cfg.Mode)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
