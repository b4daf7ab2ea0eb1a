package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEventBuffer(t *testing.T) {
	pub := NewSSEPublisher(TopicConfig{})
	defer pub.Close()

	// Configure topic with buffer size 3, replay all
	pub.ConfigureTopic("test", TopicConfig{
		BufferSize: 3,
		ReplayAll:  true,
	})

	// Publish 5 events
	for i := 1; i <= 5; i++ {
		err := pub.Publish("test", "event", map[string]int{"num": i})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe and verify we get last 3 events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive last 3 events (3, 4, 5)
	receivedCount := 0
	for receivedCount < 3 {
		select {
		case event := <-sub.Events():
			receivedCount++
			t.Logf("Received replayed event version %d", event.Version)
			// Events should be 3, 4, 5 (last 3 of 5)
			expectedVersion := receivedCount + 2
			if event.Version != expectedVersion {
				t.Errorf("Expected version %d, got %d", expectedVersion, event.Version)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for event %d", receivedCount+1)
		}
	}

	if receivedCount != 3 {
		t.Errorf("Expected 3 replayed events, got %d", receivedCount)
	}
}

func TestReplayLastOnly(t *testing.T) {
	pub := NewSSEPublisher(TopicConfig{})
	defer pub.Close()

	// Configure topic with buffer size 5, replay only last
	pub.ConfigureTopic("test", TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	// Publish 3 events
	for i := 1; i <= 3; i++ {
		err := pub.Publish("test", "event", map[string]int{"num": i})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe and verify we get only last event
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Should receive only last event (version 3)
	select {
	case event := <-sub.Events():
		if event.Version != 3 {
			t.Errorf("Expected version 3, got %d", event.Version)
		}
		t.Logf("Received last event version %d", event.Version)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}

	// Verify no more events are sent
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected extra event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no extra events
	}
}

func TestNoBuffer(t *testing.T) {
	pub := NewSSEPublisher(TopicConfig{})
	defer pub.Close()

	// Configure topic with no buffer
	pub.ConfigureTopic("test", TopicConfig{
		BufferSize: 0,
		ReplayAll:  false,
	})

	// Publish events before subscribing
	for i := 1; i <= 3; i++ {
		err := pub.Publish("test", "event", map[string]int{"num": i})
		if err != nil {
			t.Fatalf("Failed to publish event %d: %v", i, err)
		}
	}

	// Subscribe - should not receive any replayed events
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	// Verify no events are received (because none were buffered)
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected replayed event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
		// Good, no events replayed
		t.Log("Correctly received no events (buffer disabled)")
	}

	// Now publish a new event - subscriber should receive it
	err = pub.Publish("test", "event", map[string]int{"num": 4})
	if err != nil {
		t.Fatalf("Failed to publish new event: %v", err)
	}

	select {
	case event := <-sub.Events():
		if event.Version != 4 {
			t.Errorf("Expected version 4, got %d", event.Version)
		}
		t.Logf("Received new event version %d", event.Version)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for new event")
	}
}

func TestConflateKeepsNewest(t *testing.T) {
	pub := NewSSEPublisher(TopicConfig{BufferSize: 1, Conflate: true})
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := pub.Subscribe(ctx, FrameTopic("overview"))
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	// Overflow the queue without reading
	total := subscriberQueue + 10
	for i := 1; i <= total; i++ {
		if err := pub.Publish(FrameTopic("overview"), "frame", map[string]int{"seq": i}); err != nil {
			t.Fatalf("Failed to publish frame %d: %v", i, err)
		}
	}

	var last int
	for len(sub.Events()) > 0 {
		last = (<-sub.Events()).Version
	}
	if last != total {
		t.Errorf("Expected newest frame %d delivered, got %d", total, last)
	}
}

func TestDefaultConfigAppliesToRuntimeTopics(t *testing.T) {
	pub := NewSSEPublisher(TopicConfig{BufferSize: 1})
	defer pub.Close()
	pub.ConfigureTopic(TopicStatus, TopicConfig{})

	pub.Publish(FrameTopic("reference"), "frame", map[string]int{"seq": 1})
	pub.Publish(TopicStatus, "ready", ViewStatus{View: "reference", State: "ready"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	frames, _ := pub.Subscribe(ctx, FrameTopic("reference"))
	status, _ := pub.Subscribe(ctx, TopicStatus)

	select {
	case event := <-frames.Events():
		if event.Topic != "frame:reference" {
			t.Errorf("Expected frame:reference, got %s", event.Topic)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected buffered frame replayed")
	}
	select {
	case event := <-status.Events():
		t.Errorf("Expected no replay for unbuffered status topic, got version %d", event.Version)
	case <-time.After(20 * time.Millisecond):
	}

	if pub.Subscribers(TopicStatus) != 1 {
		t.Errorf("Expected 1 status subscriber, got %d", pub.Subscribers(TopicStatus))
	}
}

func TestCloseAndWriteSSE(t *testing.T) {
	pub := NewSSEPublisher(TopicConfig{})
	ctx := context.Background()
	sub, _ := pub.Subscribe(ctx, TopicStatus)
	pub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Error("Expected channel closed after publisher Close")
	}
	if _, err := pub.Subscribe(ctx, TopicStatus); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := pub.Publish(TopicStatus, "ready", nil); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}

	var buf bytes.Buffer
	WriteSSE(&buf, Event{Topic: TopicStatus, Type: "ready", Data: json.RawMessage(`{"view":"overview"}`), Version: 3})
	out := buf.String()
	if !strings.HasPrefix(out, "data: {") || !strings.HasSuffix(out, "\n\n") || !strings.Contains(out, `"version":3`) {
		t.Errorf("Unexpected SSE framing %q", out)
	}
}
