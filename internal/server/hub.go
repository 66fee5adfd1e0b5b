package server

import (
	"context"
	"fmt"
	"sync"

	"wavepulse/internal/inspect"
)

// Hub tracks the app connection of every channel and delivers outbound
// requests to it. A newer connection on a channel replaces the older one.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*appConn
}

type appConn struct {
	out chan any
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*appConn)}
}

func (h *Hub) attach(channelID string) *appConn {
	c := &appConn{out: make(chan any, 32)}
	h.mu.Lock()
	h.conns[channelID] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) detach(channelID string, c *appConn) {
	h.mu.Lock()
	if h.conns[channelID] == c {
		delete(h.conns, channelID)
	}
	h.mu.Unlock()
}

// Connected reports whether an app listens on channelID.
func (h *Hub) Connected(channelID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[channelID]
	return ok
}

// Send queues msg for the app on channelID.
func (h *Hub) Send(ctx context.Context, channelID string, msg inspect.Message) error {
	h.mu.RLock()
	c, ok := h.conns[channelID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w %q", inspect.ErrNotConnected, channelID)
	}
	select {
	case c.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ inspect.Notifier = (*Hub)(nil)
