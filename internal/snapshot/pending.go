package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wavepulse/internal/logging"
)

// Request is an outstanding request to a connected app.
type Request struct {
	ID        string    `json:"requestId"`
	ChannelID string    `json:"channelId"`
	Kind      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Entry is a request and, once the app answered, its result.
type Entry struct {
	Request Request
	Result  json.RawMessage
	Done    bool
}

// Pending tracks requests sent to apps until their results arrive. Every
// request has its own id, so entries are never written concurrently by two
// logical requests.
type Pending struct {
	store Store[Entry]
}

// NewPending creates a registry over store.
func NewPending(store Store[Entry]) *Pending {
	return &Pending{store: store}
}

// Submit registers a new request and returns it.
func (p *Pending) Submit(channelID, kind string) Request {
	req := Request{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	p.store.Set(req.ID, Entry{Request: req})
	logging.Debug("pending request submitted", "id", req.ID, "channel", channelID, "kind", kind)
	return req
}

// Resolve records the result of request id. It reports false when the
// request is unknown, already purged or already resolved.
func (p *Pending) Resolve(id string, result json.RawMessage) bool {
	e, ok := p.store.Get(id)
	if !ok || e.Done {
		return false
	}
	e.Result = result
	e.Done = true
	p.store.Set(id, e)
	return true
}

// Lookup returns the entry for id.
func (p *Pending) Lookup(id string) (Entry, bool) {
	return p.store.Get(id)
}

// Await polls for the result of req and purges the entry on completion,
// timeout or cancellation.
func (p *Pending) Await(ctx context.Context, req Request, interval time.Duration, attempts int) (json.RawMessage, error) {
	defer p.store.Delete(req.ID)
	res, err := Poll(ctx, interval, attempts, func() (json.RawMessage, bool) {
		e, ok := p.store.Get(req.ID)
		if !ok || !e.Done {
			return nil, false
		}
		return e.Result, true
	})
	if err != nil {
		return nil, fmt.Errorf("%s request %s: %w", req.Kind, req.ID, err)
	}
	return res, nil
}

// Cancel purges req without waiting.
func (p *Pending) Cancel(req Request) {
	p.store.Delete(req.ID)
}
