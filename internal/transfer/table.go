// Package transfer implements chunked file transfers: the receiving-side
// session table and the sending-side chunk walk. Both peers use it.
package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"classcast/pkg/types"
)

// Completed describes a finished transfer handed back to the caller, which
// decides whether to invoke the auto-open collaborator.
type Completed struct {
	Path     string
	AutoOpen bool
}

// Table tracks in-progress inbound transfers keyed by transfer id.
type Table struct {
	defaultAutoOpen bool
	log             zerolog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

type session struct {
	file     *os.File
	path     string
	expected uint64
	received uint64
	autoOpen bool
}

// NewTable creates an empty transfer table. defaultAutoOpen applies when an
// offer does not request auto-open itself.
func NewTable(defaultAutoOpen bool, log zerolog.Logger) *Table {
	return &Table{
		defaultAutoOpen: defaultAutoOpen,
		log:             log,
		sessions:        make(map[uuid.UUID]*session),
	}
}

// Open registers a session for an offer and creates the destination file
// under destDir, with the advertised name sanitized. A duplicate offer for a
// live transfer id replaces the previous session.
func (t *Table) Open(offer types.FileOffer, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}

	path := filepath.Join(destDir, types.SanitizeFilename(offer.FileName))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}

	t.mu.Lock()
	if prev, exists := t.sessions[offer.TransferID]; exists {
		t.log.Warn().
			Str("transfer_id", offer.TransferID.String()).
			Str("path", prev.path).
			Msg("replacing session for duplicate file offer")
		prev.file.Close()
	}
	t.sessions[offer.TransferID] = &session{
		file:     file,
		path:     path,
		expected: offer.TotalSize,
		autoOpen: offer.AutoOpen || t.defaultAutoOpen,
	}
	t.mu.Unlock()

	return path, nil
}

// WriteChunk appends chunk bytes to the matching session. Chunks for unknown
// transfer ids are dropped with a warning, never buffered.
func (t *Table) WriteChunk(chunk types.FileChunk) error {
	t.mu.Lock()
	sess, exists := t.sessions[chunk.TransferID]
	t.mu.Unlock()

	if !exists {
		t.log.Warn().
			Str("transfer_id", chunk.TransferID.String()).
			Msg("dropping chunk for unknown transfer")
		return nil
	}

	if _, err := sess.file.Write(chunk.Bytes); err != nil {
		return fmt.Errorf("write transfer %s: %w", chunk.TransferID, err)
	}
	sess.received += uint64(len(chunk.Bytes))
	return nil
}

// Complete finalizes and removes the session. On success a size mismatch is
// logged but the transfer still finishes with whatever bytes arrived. The
// return value is non-nil when the caller should auto-open the file.
func (t *Table) Complete(done types.FileComplete) (*Completed, error) {
	t.mu.Lock()
	sess, exists := t.sessions[done.TransferID]
	delete(t.sessions, done.TransferID)
	t.mu.Unlock()

	if !exists {
		t.log.Warn().
			Str("transfer_id", done.TransferID.String()).
			Msg("completion for unknown transfer")
		return nil, nil
	}

	if err := sess.file.Close(); err != nil {
		return nil, fmt.Errorf("close transfer %s: %w", done.TransferID, err)
	}

	if !done.Success {
		t.log.Warn().
			Str("transfer_id", done.TransferID.String()).
			Str("message", done.Message).
			Msg("transfer reported as failed by sender")
		return nil, nil
	}

	if sess.received != sess.expected {
		t.log.Warn().
			Str("transfer_id", done.TransferID.String()).
			Uint64("expected", sess.expected).
			Uint64("received", sess.received).
			Msg("transfer size mismatch")
	}

	if sess.autoOpen {
		return &Completed{Path: sess.path, AutoOpen: true}, nil
	}
	return &Completed{Path: sess.path}, nil
}

// Len reports the number of transfers in progress.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// CloseAll abandons every in-progress transfer, used at shutdown.
func (t *Table) CloseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, sess := range t.sessions {
		sess.file.Close()
		delete(t.sessions, id)
	}
}
