// Package queue provides an in-process message queue adapter for scenarios
// to exercise: bounded capacity, context-aware publish and consume, and a
// one-shot close. The queue implements io.Closer, so a resource step that
// opens one gets it released automatically when the scenario ends.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrClosed is returned by Publish and Consume after Close.
	ErrClosed = errors.New("queue: closed")
	// ErrFull is returned by TryPublish when the queue is at capacity.
	ErrFull = errors.New("queue: full")
)

// Message is one queued payload.
type Message struct {
	ID        string
	Body      []byte
	Published time.Time
}

// Queue is a bounded FIFO queue safe for concurrent use.
type Queue struct {
	messages  chan *Message
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a queue holding up to capacity messages. Capacity below one is
// raised to one.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		messages: make(chan *Message, capacity),
		done:     make(chan struct{}),
	}
}

// Publish enqueues body, blocking while the queue is full until ctx fires or
// the queue closes. The assigned message is returned.
func (q *Queue) Publish(ctx context.Context, body []byte) (*Message, error) {
	msg := &Message{
		ID:        uuid.NewString(),
		Body:      body,
		Published: time.Now(),
	}

	select {
	case <-q.done:
		return nil, ErrClosed
	default:
	}

	select {
	case q.messages <- msg:
		return msg, nil
	case <-q.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// TryPublish enqueues body without blocking.
func (q *Queue) TryPublish(body []byte) (*Message, error) {
	msg := &Message{
		ID:        uuid.NewString(),
		Body:      body,
		Published: time.Now(),
	}

	select {
	case <-q.done:
		return nil, ErrClosed
	default:
	}

	select {
	case q.messages <- msg:
		return msg, nil
	default:
		return nil, ErrFull
	}
}

// Consume dequeues the oldest message, blocking until one is available, ctx
// fires, or the queue closes with nothing buffered. Messages already
// buffered remain consumable after Close.
func (q *Queue) Consume(ctx context.Context) (*Message, error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	default:
	}

	select {
	case msg := <-q.messages:
		return msg, nil
	case <-q.done:
		// Drain anything that raced in before the close.
		select {
		case msg := <-q.messages:
			return msg, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// Len returns the number of buffered messages.
func (q *Queue) Len() int {
	return len(q.messages)
}

// Close marks the queue closed. Closing twice is a no-op.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	return nil
}
