package hub

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Len())

	s1 := testSession("S01")
	s2 := testSession("S02")
	require.NoError(t, r.Add(s1))
	require.NoError(t, r.Add(s2))
	assert.Equal(t, 2, r.Len())

	r.Remove(s1.ConnectionID)
	assert.Equal(t, 1, r.Len())

	// Removing an unknown or already-removed id is a no-op.
	r.Remove(s1.ConnectionID)
	r.Remove(uuid.New())
	assert.Equal(t, 1, r.Len())
}

func TestRegistryAddNil(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Add(nil), ErrNilSession)
}

func TestRegistryListSnapshot(t *testing.T) {
	r := NewRegistry()
	s1 := testSession("S01")
	require.NoError(t, r.Add(s1))

	snapshot := r.List()
	require.Len(t, snapshot, 1)

	// Mutations after the snapshot do not affect it.
	r.Remove(s1.ConnectionID)
	assert.Len(t, snapshot, 1)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryFindByStudentID(t *testing.T) {
	r := NewRegistry()
	s1 := testSession("S01")
	require.NoError(t, r.Add(s1))

	found, ok := r.FindByStudentID("S01")
	require.True(t, ok)
	assert.Equal(t, s1.ConnectionID, found.ConnectionID)

	_, ok = r.FindByStudentID("S99")
	assert.False(t, ok)
}

func TestRegistryDrain(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(testSession("S01")))
	require.NoError(t, r.Add(testSession("S02")))

	drained := r.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Drain())
}
