package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"wavepulse/internal/chat"
	"wavepulse/internal/logging"
	"wavepulse/internal/router"
)

type chatRequest struct {
	Message   any           `json:"message"`
	History   []router.Turn `json:"history"`
	ChannelID string        `json:"channelId"`
	Stream    bool          `json:"stream"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	message, ok := req.Message.(string)
	if !ok || strings.TrimSpace(message) == "" {
		writeError(w, http.StatusBadRequest, "message must be a non-empty string")
		return
	}
	q := router.Query{Message: message, History: req.History, ChannelID: req.ChannelID}

	if wantsStream(r, req.Stream) {
		s.streamChat(w, r, q)
		return
	}
	reply := s.chat.Handle(r.Context(), q, nil)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, q router.Query) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The sink is never called concurrently.
	s.chat.Handle(r.Context(), q, func(e chat.Event) {
		if r.Context().Err() != nil {
			return
		}
		data, err := json.Marshal(e)
		if err != nil {
			logging.Warn("encode chat event failed", "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	})
}

func wantsStream(r *http.Request, flag bool) bool {
	if flag || strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return true
	}
	v := r.URL.Query().Get("stream")
	return v == "1" || v == "true"
}
