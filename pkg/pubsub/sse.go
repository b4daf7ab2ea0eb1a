package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/vertex-graph/pkg/logging"
)

var ErrClosed = errors.New("publisher is closed")

// TopicConfig configures buffering for a topic.
type TopicConfig struct {
	BufferSize int  // Events kept for replay to new subscribers (0 = none)
	ReplayAll  bool // Replay the whole buffer; otherwise only the latest event
	Conflate   bool // A slow subscriber loses its oldest pending event instead of the newest
}

const subscriberQueue = 32

// SSEPublisher implements Publisher for Server-Sent Events streams.
type SSEPublisher struct {
	mu            sync.RWMutex
	subscriptions map[string]map[*sseSubscription]bool
	version       map[string]int
	eventBuffer   map[string][]Event
	topicConfig   map[string]TopicConfig
	defaultConfig TopicConfig
	closed        bool
}

// NewSSEPublisher creates a publisher. Topics without their own configuration use
// defaultConfig, which suits topics named at runtime such as per-view frames.
func NewSSEPublisher(defaultConfig TopicConfig) *SSEPublisher {
	return &SSEPublisher{
		subscriptions: make(map[string]map[*sseSubscription]bool),
		version:       make(map[string]int),
		eventBuffer:   make(map[string][]Event),
		topicConfig:   make(map[string]TopicConfig),
		defaultConfig: defaultConfig,
	}
}

// ConfigureTopic sets the buffering of one topic.
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topicConfig[topic] = config
}

func (p *SSEPublisher) configFor(topic string) TopicConfig {
	if c, ok := p.topicConfig[topic]; ok {
		return c
	}
	return p.defaultConfig
}

// Subscribe creates a subscription and replays buffered events to it.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriberQueue),
		publisher: p,
	}
	if p.subscriptions[topic] == nil {
		p.subscriptions[topic] = make(map[*sseSubscription]bool)
	}
	p.subscriptions[topic][sub] = true

	config := p.configFor(topic)
	replay := p.eventBuffer[topic]
	if !config.ReplayAll && len(replay) > 0 {
		replay = replay[len(replay)-1:]
	}
	// Replay under the lock so no live event overtakes the buffered ones
	for _, event := range replay {
		sub.deliver(event, config.Conflate)
	}
	p.mu.Unlock()

	if len(replay) > 0 {
		logging.Trace("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of a topic without blocking.
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	p.version[topic]++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    payload,
		Version: p.version[topic],
	}

	config := p.configFor(topic)
	if config.BufferSize > 0 {
		buffer := append(p.eventBuffer[topic], event)
		if len(buffer) > config.BufferSize {
			buffer = buffer[len(buffer)-config.BufferSize:]
		}
		p.eventBuffer[topic] = buffer
	}

	for sub := range p.subscriptions[topic] {
		sub.deliver(event, config.Conflate)
	}
	return nil
}

// Subscribers returns the number of live subscriptions of a topic.
func (p *SSEPublisher) Subscribers(topic string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscriptions[topic])
}

// Close shuts down the publisher and closes every subscription channel.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	for _, subs := range p.subscriptions {
		for sub := range subs {
			sub.mu.Lock()
			sub.closed = true
			close(sub.events)
			sub.mu.Unlock()
		}
	}
	p.subscriptions = make(map[string]map[*sseSubscription]bool)
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if subs := p.subscriptions[sub.topic]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(p.subscriptions, sub.topic)
		}
	}
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	closed    bool
	mu        sync.Mutex
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// deliver enqueues an event. With conflate set a full queue drops its oldest event;
// otherwise the new event is dropped. Callers hold the publisher lock.
func (s *sseSubscription) deliver(event Event, conflate bool) {
	select {
	case s.events <- event:
		return
	default:
	}
	if !conflate {
		logging.Warn("subscription queue full, dropping event", "topic", s.topic, "version", event.Version)
		return
	}
	select {
	case <-s.events:
	default:
	}
	select {
	case s.events <- event:
	default:
	}
}

// Close unsubscribes. The event channel stays open until the publisher closes.
func (s *sseSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.publisher.unsubscribe(s)
	return nil
}

// WriteSSE writes an event in the "data: {json}\n\n" framing.
func WriteSSE(w io.Writer, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", jsonData)
	return err
}
