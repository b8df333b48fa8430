package streamjson

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType identifies an observability event.
type EventType string

// Event types.
const (
	EventStreamInitialized EventType = "stream_initialized"
	EventTokenProcessed    EventType = "token_processed"
	EventRecoveryAttempted EventType = "recovery_attempted"
	EventStreamCompleted   EventType = "stream_completed"
)

// Event is a synchronous, in-process observability notification.
type Event struct {
	Type       EventType
	StreamID   string
	Time       time.Time
	Path       []string
	TokensSeen int
	ErrorCount int
	Suggested  int // number of advisory tokens, EventRecoveryAttempted only
}

// EventHandler consumes one event. Handlers run synchronously on the
// publishing goroutine, in subscription order, and must not call back
// into the stream that published the event.
type EventHandler func(Event)

type subscription struct {
	id      string
	typ     EventType
	handler EventHandler
}

// EventBus is a synchronous publish/subscribe hub owned by a Stream.
// There is no background delivery: Publish returns after every handler
// has run.
type EventBus struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler for one event type and returns a
// subscription ID.
func (b *EventBus) Subscribe(typ EventType, handler EventHandler) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.subs = append(b.subs, subscription{id: id, typ: typ, handler: handler})
	return id
}

// Unsubscribe removes a subscription by ID.
func (b *EventBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to all matching handlers, in subscription
// order.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.typ == e.Type {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// logEvents subscribes a zap logger to every event type.
func logEvents(bus *EventBus, logger *zap.Logger) {
	handler := func(e Event) {
		logger.Debug(string(e.Type),
			zap.String("stream_id", e.StreamID),
			zap.Strings("path", e.Path),
			zap.Int("tokens_seen", e.TokensSeen),
			zap.Int("error_count", e.ErrorCount),
			zap.Int("suggested", e.Suggested),
		)
	}
	for _, typ := range []EventType{
		EventStreamInitialized,
		EventTokenProcessed,
		EventRecoveryAttempted,
		EventStreamCompleted,
	} {
		bus.Subscribe(typ, handler)
	}
}
