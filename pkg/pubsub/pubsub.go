// Package pubsub fans frames and view status out to live subscribers.
package pubsub

import (
	"context"
	"encoding/json"
)

// Topic names.
const (
	TopicStatus = "status"
	TopicHost   = "host" // Requests for the embedding host: open, pick, vertex updated
	framePrefix = "frame:"
)

// FrameTopic returns the topic carrying the frames of a view.
func FrameTopic(view string) string {
	return framePrefix + view
}

// Event is one published message.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"` // frame, loading, ready, error, relocating, or a host event type
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // Per-topic sequence number
}

// Subscription receives the events of one topic.
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher manages subscriptions and publishing.
type Publisher interface {
	// Subscribe creates a subscription; it closes when ctx is done.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends data, marshalled to JSON, to every subscriber of topic.
	Publish(topic string, eventType string, data any) error

	Close() error
}

// ViewStatus reports the load state of a view.
type ViewStatus struct {
	View    string `json:"view"`
	State   string `json:"state"` // loading, ready, error
	Message string `json:"message,omitempty"`
	Nodes   int    `json:"nodes"`   // Nodes of the unfiltered graph
	Visible int    `json:"visible"` // Nodes left after collapse
}

// HostEvent asks the embedding host to act on a view callback.
type HostEvent struct {
	View     string `json:"view"`
	VertexID string `json:"vertexId"`
	Entry    string `json:"entry,omitempty"` // Note, image or file name for pick events
}
