package hub

import (
	"sync"

	"classcast/pkg/types"
)

// BroadcastState is the single process-wide record of which source is live
// and in which display mode. It holds plain state; the teacher server drives
// transitions, stopping the old capture pipeline before starting the new one.
type BroadcastState struct {
	mu     sync.RWMutex
	source *types.BroadcastSource
	mode   types.BroadcastMode
}

// NewBroadcastState starts idle in window mode.
func NewBroadcastState() *BroadcastState {
	return &BroadcastState{mode: types.ModeWindow}
}

// SetSource replaces the active source and mode. A nil source means idle.
// Concurrent transitions race on last-write-wins; there is no pending state.
func (b *BroadcastState) SetSource(source *types.BroadcastSource, mode types.BroadcastMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.source = source
	b.mode = mode
}

// Source returns the active source, or ok=false when idle.
func (b *BroadcastState) Source() (types.BroadcastSource, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.source == nil {
		return types.BroadcastSource{}, false
	}
	return *b.source, true
}

// Mode returns the current display mode.
func (b *BroadcastState) Mode() types.BroadcastMode {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mode
}

// IsStudentBroadcasting reports whether the given student is the active
// source, which gates relaying that student's inbound video.
func (b *BroadcastState) IsStudentBroadcasting(studentID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.source != nil && b.source.IsStudent(studentID)
}
