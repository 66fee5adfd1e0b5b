package ssh

import (
	"context"
	"sync"
	"time"

	"wavepulse/internal/logging"
)

// Pool keeps one Client per user@host:port and closes idle ones.
type Pool struct {
	clients map[string]*Client
	mu      sync.Mutex
	maxIdle time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

// NewPool creates a pool and starts its idle sweeper.
func NewPool(maxIdle time.Duration) *Pool {
	if maxIdle <= 0 {
		maxIdle = 15 * time.Minute
	}
	p := &Pool{
		clients: make(map[string]*Client),
		maxIdle: maxIdle,
		stopCh:  make(chan struct{}),
	}
	go p.sweepLoop()
	return p
}

// Get returns a connected client for cfg, reconnecting a dead one.
func (p *Pool) Get(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	key := cfg.Key()

	p.mu.Lock()
	client, ok := p.clients[key]
	if !ok {
		client = NewClient(cfg)
		p.clients[key] = client
		logging.Debug("created SSH client", "key", key)
	}
	p.mu.Unlock()

	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// Sweep closes clients idle longer than maxIdle and returns how many it closed.
func (p *Pool) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	closed := 0
	for key, c := range p.clients {
		if idle := time.Since(c.LastUse()); idle > p.maxIdle {
			logging.Info("closing idle SSH session", "key", key, "idle", idle)
			c.Close()
			delete(p.clients, key)
			closed++
		}
	}
	return closed
}

func (p *Pool) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Sweep()
		case <-p.stopCh:
			return
		}
	}
}

// Close stops the sweeper and closes every client.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.stopCh) })

	p.mu.Lock()
	defer p.mu.Unlock()
	for key, c := range p.clients {
		if err := c.Close(); err != nil {
			logging.Warn("error closing SSH session", "key", key, "error", err)
		}
	}
	p.clients = make(map[string]*Client)
}

// Len returns the number of pooled clients.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}
