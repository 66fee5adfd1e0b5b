package snapshot

import (
	"encoding/json"
	"time"
)

// LogEntry is one console line captured from the app.
type LogEntry struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// NetworkRequest is one request observed by the app.
type NetworkRequest struct {
	Method   string `json:"method"`
	URL      string `json:"url"`
	Status   int    `json:"status,omitempty"`
	Duration int64  `json:"duration,omitempty"` // ms
	Error    string `json:"error,omitempty"`
}

// Snapshot is the latest known state of one connected app. The component
// tree, timeline and storage are opaque to the server.
type Snapshot struct {
	ChannelID     string                     `json:"channelId"`
	Console       []LogEntry                 `json:"console,omitempty"`
	Network       []NetworkRequest           `json:"network,omitempty"`
	ComponentTree json.RawMessage            `json:"componentTree,omitempty"`
	Timeline      []json.RawMessage          `json:"timeline,omitempty"`
	Storage       map[string]json.RawMessage `json:"storage,omitempty"`
	AppInfo       map[string]any             `json:"appInfo,omitempty"`
	PlatformInfo  map[string]any             `json:"platformInfo,omitempty"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
}

// Save stores snap under its channel, stamping UpdatedAt. The last write wins.
func Save(store Store[*Snapshot], snap *Snapshot) {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	store.Set(snap.ChannelID, snap)
}
