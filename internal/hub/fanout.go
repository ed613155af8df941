package hub

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"classcast/pkg/types"
)

// Fanout delivers one message to many sessions, best effort per recipient.
// Enqueue failures are logged and do not affect other recipients.
type Fanout struct {
	registry *Registry
	log      zerolog.Logger
}

// NewFanout creates a fan-out engine over the given registry.
func NewFanout(registry *Registry, log zerolog.Logger) *Fanout {
	return &Fanout{registry: registry, log: log}
}

// Broadcast enqueues env for every registered session.
func (f *Fanout) Broadcast(env types.Envelope) {
	f.BroadcastExcept(env, uuid.Nil)
}

// BroadcastExcept enqueues env for every registered session except the one
// identified by exclude. Pass uuid.Nil to exclude nobody. Used to keep a
// spotlighted student's own stream from echoing back to it.
func (f *Fanout) BroadcastExcept(env types.Envelope, exclude uuid.UUID) {
	for _, session := range f.registry.List() {
		if session.ConnectionID == exclude {
			continue
		}
		if err := session.Send(env); err != nil {
			f.log.Warn().
				Str("student_id", session.StudentID).
				Str("type", env.Type).
				Err(err).
				Msg("dropping message for closed session")
		}
	}
}
