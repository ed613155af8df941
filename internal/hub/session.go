// Package hub tracks connected students and distributes messages to them.
// It owns the connection registry, the broadcast state, and the fan-out path;
// socket handling lives with the teacher server.
package hub

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"classcast/pkg/types"
)

// Session is the registry's record of one connected student. The connection
// handler holds a reference; the registry owns the lifetime.
type Session struct {
	ConnectionID uuid.UUID
	Addr         net.Addr
	StudentID    string
	StudentName  string
	Capabilities types.Capabilities

	queue *Queue

	mu       sync.Mutex
	lastSeen time.Time
}

// NewSession creates a session for an accepted connection after handshake.
func NewSession(connectionID uuid.UUID, addr net.Addr, hello types.Hello) *Session {
	return &Session{
		ConnectionID: connectionID,
		Addr:         addr,
		StudentID:    hello.StudentID,
		StudentName:  hello.StudentName,
		Capabilities: hello.Capabilities,
		queue:        NewQueue(),
		lastSeen:     time.Now(),
	}
}

// Send enqueues a message for the session's writer goroutine. It never
// blocks; the queue is unbounded. Returns ErrSessionClosed once the session
// has been torn down.
func (s *Session) Send(env types.Envelope) error {
	return s.queue.Push(env)
}

// Next blocks until a queued message is available or the session closes.
// Only the session's single writer goroutine calls this.
func (s *Session) Next() (types.Envelope, bool) {
	return s.queue.Pop()
}

// Close releases the outbound queue, waking the writer goroutine. Idempotent.
func (s *Session) Close() {
	s.queue.Close()
}

// QueueLen reports the number of messages waiting to be written.
func (s *Session) QueueLen() int {
	return s.queue.Len()
}

// Touch records peer activity for the idle reaper.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the most recent inbound activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Queue is an unbounded FIFO of outbound messages drained by a single
// writer goroutine. Delivery to a stalled peer accumulates memory here; the
// server's idle reaper bounds how long that can go on. The student client
// uses the same type for its teacher-bound traffic.
type Queue struct {
	mu     sync.Mutex
	items  []types.Envelope
	notify chan struct{}
	closed bool
}

// NewQueue creates an empty open queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends env. Never blocks; fails only after Close.
func (q *Queue) Push(env types.Envelope) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrSessionClosed
	}
	q.items = append(q.items, env)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop blocks until an item is available or the queue is closed. Single
// consumer only.
func (q *Queue) Pop() (types.Envelope, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			env := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return env, true
		}
		if q.closed {
			q.mu.Unlock()
			return types.Envelope{}, false
		}
		q.mu.Unlock()

		<-q.notify
	}
}

// Close marks the queue closed and discards pending items. Idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Len reports the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
