// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package sse implements the publish-subscribe progress channel used to push
// import progress to admin clients without polling.
package sse

import (
	"sync"

	"github.com/samber/lo"
)

// Hub manages subscriber channels keyed by an opaque channel id the client
// supplies with the import request. Multiple subscribers may listen on the
// same id (several dashboard tabs watching one import).
type Hub struct {
	subscribers map[string][]chan string
	mu          sync.RWMutex
}

// NewHub creates a new progress hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]chan string),
	}
}

// Subscribe adds a new subscriber for the given channel id and returns the
// channel to receive events on.
func (h *Hub) Subscribe(channelID string) chan string {
	ch := make(chan string, 16) // buffered to prevent blocking publishers

	h.mu.Lock()
	defer h.mu.Unlock()

	h.subscribers[channelID] = append(h.subscribers[channelID], ch)
	return ch
}

// Unsubscribe removes a subscriber channel for the given channel id.
func (h *Hub) Unsubscribe(channelID string, ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subscribers[channelID] = lo.Filter(h.subscribers[channelID], func(c chan string, _ int) bool {
		return c != ch
	})
	if len(h.subscribers[channelID]) == 0 {
		delete(h.subscribers, channelID)
	}

	close(ch)
}

// Publish sends a message to all subscribers of the given channel id.
// Publishing never blocks; a subscriber with a full buffer misses the event.
// Publishing to an id nobody listens on is a no-op, so a disconnected
// observer cannot stall or abort the publisher.
func (h *Hub) Publish(channelID string, message string) {
	h.mu.RLock()
	subscribers := h.subscribers[channelID]
	h.mu.RUnlock()

	for _, ch := range subscribers {
		select {
		case ch <- message:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the total number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.SumBy(lo.Values(h.subscribers), func(chans []chan string) int {
		return len(chans)
	})
}

// ChannelCount returns the number of channel ids with active subscribers.
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers)
}
