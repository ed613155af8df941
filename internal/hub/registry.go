package hub

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live sessions keyed by connection id. Reads return
// point-in-time snapshots so fan-out never holds the lock across I/O.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Add registers a session under its connection id.
func (r *Registry) Add(session *Session) error {
	if session == nil {
		return ErrNilSession
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ConnectionID] = session
	return nil
}

// Remove unregisters by connection id. Idempotent; removing an unknown id is
// a no-op.
func (r *Registry) Remove(connectionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connectionID)
}

// List returns a snapshot of all registered sessions in no particular order.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// FindByStudentID returns a session whose student id matches. Student ids are
// externally supplied and not guaranteed unique; an arbitrary match wins.
func (r *Registry) FindByStudentID(studentID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.StudentID == studentID {
			return s, true
		}
	}
	return nil, false
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Drain removes and returns every session, used at server shutdown.
func (r *Registry) Drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	return sessions
}
