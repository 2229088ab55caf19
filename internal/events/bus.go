// Package events provides a non-blocking publish/subscribe bus for the
// engine's outbound notifications. Delivery is asynchronous over buffered
// channels; a full subscriber drops events rather than blocking analysis.
package events

import (
	"sync"
	"time"
)

// EventType identifies the kind of event published on the bus.
type EventType string

const (
	// EventSuggestionCreated fires when the engine inserts a new
	// suggestion into workspace state.
	EventSuggestionCreated EventType = "suggestion_created"
	// EventConflictDetected fires once per conflict found by an analysis
	// run.
	EventConflictDetected EventType = "conflict_detected"
	// EventCorrectionApplied fires when an auto-correction mutates the
	// workspace through the injected callbacks.
	EventCorrectionApplied EventType = "correction_applied"
	// EventAnalysisCompleted fires at the end of every analysis tick.
	EventAnalysisCompleted EventType = "analysis_completed"
	// EventSuggestionFeedback fires when the user accepts, dismisses, or
	// customizes a suggestion.
	EventSuggestionFeedback EventType = "suggestion_feedback"
)

// Event is one published occurrence with its payload fields.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]any
}

// Subscriber receives events for the type it subscribed to.
type Subscriber func(Event)

// Bus fans events out to subscribers without ever blocking the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan Event
	bufferSize  int
}

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers fn for the given event type and returns an
// unsubscribe function. fn runs on its own goroutine; a panic inside it is
// contained so one bad subscriber cannot take down the bus.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)

	go func() {
		for event := range ch {
			deliver(fn, event)
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i, sub := range subs {
			if sub == ch {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

func deliver(fn Subscriber, event Event) {
	defer func() {
		_ = recover()
	}()
	fn(event)
}

// Publish sends the event to every subscriber of its type. Subscribers
// with a full buffer miss the event; publishing never blocks.
func (b *Bus) Publish(eventType EventType, data map[string]any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	for _, ch := range b.subscribers[eventType] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close shuts down every subscriber channel and clears all subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for eventType, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, eventType)
	}
}
