package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// StreamManager fans state diffs out to the SSE subscribers of each flow.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- *domain.StateDiff]struct{} // FlowID -> set of channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- *domain.StateDiff]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel for a flow. The returned func unsubscribes.
func (sm *StreamManager) Subscribe(flowID string) (<-chan *domain.StateDiff, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan *domain.StateDiff, 10)
	if _, ok := sm.subscribers[flowID]; !ok {
		sm.subscribers[flowID] = make(map[chan<- *domain.StateDiff]struct{})
	}
	sm.subscribers[flowID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[flowID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, flowID)
			}
		}
	}
}

// Broadcast sends a diff to every subscriber of the flow. Empty diffs are dropped.
func (sm *StreamManager) Broadcast(flowID string, diff *domain.StateDiff) {
	if diff == nil || diff.IsEmpty() {
		return
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[flowID] {
		select {
		case ch <- diff:
		default:
			// Slow client.
			sm.logger.Warn("SSE: client buffer full, dropping diff", "flow", flowID)
		}
	}
}

// SubscribeEvents handles GET /flows/{id}/events (SSE).
// The optional watch parameter ("answers,status,position,notices") filters
// diffs to those touching at least one listed field.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	flowID := chi.URLParam(r, "flowID")

	var watch []string
	if raw := r.URL.Query().Get("watch"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			watch = append(watch, strings.TrimSpace(f))
		}
	}

	ch, cancel := s.Streams.Subscribe(flowID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.Logger.Info("SSE: subscribed", "flow", flowID)

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE: client disconnected", "flow", flowID)
			return
		case diff, ok := <-ch:
			if !ok {
				return
			}
			if !matches(diff, watch) {
				continue
			}
			payload, err := json.Marshal(diff)
			if err != nil {
				s.Logger.Error("SSE: encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func matches(diff *domain.StateDiff, watch []string) bool {
	if len(watch) == 0 {
		return true
	}
	for _, field := range watch {
		switch field {
		case "answers":
			if len(diff.Answers) > 0 {
				return true
			}
		case "status":
			if diff.Status != nil {
				return true
			}
		case "position":
			if diff.StepIndex != nil || diff.Position != nil {
				return true
			}
		case "notices":
			if diff.Notices != nil || diff.NoticesCleared {
				return true
			}
		}
	}
	return false
}
