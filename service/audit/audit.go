// Package audit provides an in-memory event fan-out for observability of
// broker activity. Events are process-local only; durable audit storage is
// deliberately out of scope.
package audit

import (
	"context"
	"time"

	"github.com/starks-and-wolves/ai-browser-secure/internal/clock"
	"github.com/starks-and-wolves/ai-browser-secure/internal/idgen"
)

// Standard event topics.
const (
	TopicRequestCreated    = "request.created"
	TopicDecisionCreated   = "decision.created"
	TopicDownloadCompleted = "download.completed"
)

// Event envelope published by the broker.
type Event struct {
	ID    string      `json:"id"`
	Topic string      `json:"topic"`
	Data  interface{} `json:"data,omitempty"`
	Time  time.Time   `json:"time"`
}

// Queue is a bounded in-memory event queue. Publishing never blocks the
// broker: when the buffer is full the oldest pending event is dropped in
// favour of the new one, trading completeness for liveness.
type Queue struct {
	events chan *Event
}

// DefaultBuffer is the queue capacity used when none is specified.
const DefaultBuffer = 100

// NewQueue creates a queue with the supplied buffer size.
func NewQueue(buffer int) *Queue {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Queue{events: make(chan *Event, buffer)}
}

// Publish enqueues an event under topic, stamping ID and time.
func (q *Queue) Publish(ctx context.Context, topic string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event := &Event{
		ID:    idgen.New(),
		Topic: topic,
		Data:  data,
		Time:  clock.Now(),
	}
	for {
		select {
		case q.events <- event:
			return nil
		default:
		}
		select {
		case <-q.events: // drop oldest
		default:
		}
	}
}

// Consume blocks until an event is available or ctx is done.
func (q *Queue) Consume(ctx context.Context) (*Event, error) {
	select {
	case event := <-q.events:
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryConsume returns the next pending event without blocking.
func (q *Queue) TryConsume() (*Event, bool) {
	select {
	case event := <-q.events:
		return event, true
	default:
		return nil, false
	}
}

// Size returns the number of pending events.
func (q *Queue) Size() int { return len(q.events) }
