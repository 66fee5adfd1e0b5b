// Package ssh runs shell commands on the host that holds the runtime and
// codegen source trees.
package ssh

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"wavepulse/internal/logging"
)

// Config holds connection settings for one remote host.
type Config struct {
	Host     string
	Port     int
	User     string
	KeyPath  string
	Password string
	Timeout  time.Duration
}

// Key identifies the connection in a Pool.
func (c Config) Key() string {
	return fmt.Sprintf("%s@%s:%d", c.User, c.Host, c.Port)
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 22
	}
	if c.User == "" {
		if u, err := user.Current(); err == nil {
			c.User = u.Username
		} else {
			c.User = "root"
		}
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Client is a lazily connected SSH client. Each Execute opens a fresh session
// on the shared connection.
type Client struct {
	cfg     Config
	conn    *ssh.Client
	mu      sync.Mutex
	lastUse time.Time
}

// NewClient creates a client; no connection is made until first use.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg.withDefaults(), lastUse: time.Now()}
}

// Connect dials the host unless a live connection already exists.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if _, _, err := c.conn.SendRequest("keepalive@openssh.com", true, nil); err == nil {
			c.lastUse = time.Now()
			return nil
		}
		c.conn.Close()
		c.conn = nil
	}

	clientCfg, err := c.clientConfig()
	if err != nil {
		return fmt.Errorf("failed to build SSH config: %w", err)
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprint(c.cfg.Port))
	logging.Info("connecting to SSH", "addr", addr, "user", c.cfg.User)

	dialer := &net.Dialer{Timeout: c.cfg.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, clientCfg)
	if err != nil {
		netConn.Close()
		return fmt.Errorf("SSH handshake failed: %w", err)
	}

	c.conn = ssh.NewClient(sshConn, chans, reqs)
	c.lastUse = time.Now()
	return nil
}

func (c *Client) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	candidates := []string{c.cfg.KeyPath}
	if c.cfg.KeyPath == "" {
		for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
			candidates = append(candidates, filepath.Join("~/.ssh", name))
		}
	}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		key, err := os.ReadFile(expandPath(p))
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			logging.Warn("failed to parse SSH key", "path", p, "error", err)
			continue
		}
		auth = append(auth, ssh.PublicKeys(signer))
		break
	}

	if c.cfg.Password != "" {
		auth = append(auth, ssh.Password(c.cfg.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("no authentication method available")
	}

	return &ssh.ClientConfig{
		User: c.cfg.User,
		Auth: auth,
		// The target is a developer sandbox configured by the operator.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.Timeout,
	}, nil
}

// Execute runs command remotely and returns stdout followed by stderr and the
// exit status. A non-zero exit status is not an error.
func (c *Client) Execute(ctx context.Context, command string) (string, int, error) {
	if err := c.Connect(ctx); err != nil {
		return "", -1, err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	session, err := conn.NewSession()
	if err != nil {
		return "", -1, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return "", -1, ctx.Err()
	case err := <-done:
		c.mu.Lock()
		c.lastUse = time.Now()
		c.mu.Unlock()

		output := stdout.String() + stderr.String()
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				return output, exitErr.ExitStatus(), nil
			}
			return output, -1, fmt.Errorf("command failed: %w", err)
		}
		return output, 0, nil
	}
}

// Alive reports whether the connection answers a keepalive.
func (c *Client) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return false
	}
	_, _, err := c.conn.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

// LastUse returns the time of last activity.
func (c *Client) LastUse() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUse
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
