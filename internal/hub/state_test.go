package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcast/pkg/types"
)

func TestBroadcastStateIdle(t *testing.T) {
	b := NewBroadcastState()
	_, ok := b.Source()
	assert.False(t, ok)
	assert.Equal(t, types.ModeWindow, b.Mode())
	assert.False(t, b.IsStudentBroadcasting("S01"))
}

func TestBroadcastStateTransitions(t *testing.T) {
	b := NewBroadcastState()

	teacher := types.TeacherSource()
	b.SetSource(&teacher, types.ModeFullscreen)
	src, ok := b.Source()
	require.True(t, ok)
	assert.Equal(t, types.SourceTeacher, src.Kind)
	assert.Equal(t, types.ModeFullscreen, b.Mode())
	assert.False(t, b.IsStudentBroadcasting("S01"))

	// Spotlight replaces the teacher source wholesale.
	student := types.StudentSource("S01", "Alice")
	b.SetSource(&student, types.ModeFullscreen)
	assert.True(t, b.IsStudentBroadcasting("S01"))
	assert.False(t, b.IsStudentBroadcasting("S02"))

	b.SetSource(nil, types.ModeWindow)
	_, ok = b.Source()
	assert.False(t, ok)
	assert.False(t, b.IsStudentBroadcasting("S01"))
}
