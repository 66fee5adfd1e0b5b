package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"wavepulse/internal/logging"
	"wavepulse/internal/snapshot"
)

const (
	channelWSWriteWait = 10 * time.Second
	channelWSPongWait  = 60 * time.Second
	channelWSPingEvery = (channelWSPongWait * 9) / 10
	channelWSReadLimit = 8 << 20
)

// Inbound message types from the app.
const (
	msgSnapshot    = "snapshot"
	msgEvalResult  = "eval-result"
	msgPropsResult = "props-result"
	msgPing        = "ping"
)

type channelInbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type channelOutbound struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}
}

func (s *Server) handleChannelWS(w http.ResponseWriter, r *http.Request) {
	channelID := strings.TrimSpace(r.PathValue("id"))
	if channelID == "" {
		writeError(w, http.StatusBadRequest, "channel id is required")
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(channelWSReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(channelWSPongWait)); err != nil {
		logging.Warn("channel ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(channelWSPongWait))
	})

	app := s.hub.attach(channelID)
	defer s.hub.detach(channelID, app)
	logging.Info("app connected", "channel", channelID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(channelWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-app.out:
				if err := conn.SetWriteDeadline(time.Now().Add(channelWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(channelWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in channelInbound
		if err := conn.ReadJSON(&in); err != nil {
			logging.Info("app disconnected", "channel", channelID, "reason", err)
			cancel()
			<-writerDone
			return
		}
		if reply, ok := s.handleInbound(channelID, in); ok {
			select {
			case app.out <- reply:
			case <-ctx.Done():
			}
		}
	}
}

// handleInbound applies one app message and returns an optional reply.
func (s *Server) handleInbound(channelID string, in channelInbound) (channelOutbound, bool) {
	switch strings.ToLower(strings.TrimSpace(in.Type)) {
	case msgSnapshot:
		if err := s.saveSnapshot(channelID, in.Data); err != nil {
			return channelOutbound{Type: "error", Message: err.Error()}, true
		}
		return channelOutbound{}, false
	case msgEvalResult, msgPropsResult:
		if !s.pending.Resolve(in.RequestID, in.Data) {
			logging.Debug("result for unknown or expired request", "channel", channelID, "request", in.RequestID)
		}
		return channelOutbound{}, false
	case msgPing:
		return channelOutbound{Type: "pong"}, true
	default:
		return channelOutbound{Type: "error", Message: "unknown message type " + in.Type}, true
	}
}

func (s *Server) saveSnapshot(channelID string, data json.RawMessage) error {
	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	snap.ChannelID = channelID
	snap.UpdatedAt = time.Now()
	snapshot.Save(s.snapshots, &snap)
	logging.Debug("snapshot stored", "channel", channelID, "console", len(snap.Console), "network", len(snap.Network))
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	channelID := strings.TrimSpace(r.PathValue("id"))
	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, channelWSReadLimit)).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.saveSnapshot(channelID, raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshots.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshot for channel")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
