package prefs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkadia/console/pkg/prefs"
)

func TestFirstRunIsEmpty(t *testing.T) {
	s, err := prefs.Open(t.TempDir())
	require.NoError(t, err)

	_, ok := s.Get(prefs.KeyUserID)
	assert.False(t, ok)
}

func TestRoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := prefs.Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(prefs.KeyUserID, "node_ab12cd"))
	require.NoError(t, s.Set(prefs.KeyThreadID, "7"))

	// Simulate a process restart.
	s2, err := prefs.Open(dir)
	require.NoError(t, err)

	v, ok := s2.Get(prefs.KeyUserID)
	require.True(t, ok)
	assert.Equal(t, "node_ab12cd", v)

	v, ok = s2.Get(prefs.KeyThreadID)
	require.True(t, ok)
	assert.Equal(t, "7", v)
}

func TestDelete(t *testing.T) {
	s, err := prefs.Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(prefs.KeyThreadID, "7"))
	require.NoError(t, s.Delete(prefs.KeyThreadID))
	_, ok := s.Get(prefs.KeyThreadID)
	assert.False(t, ok)

	// Deleting again is a no-op, not an error.
	require.NoError(t, s.Delete(prefs.KeyThreadID))
}

func TestCorruptFileSurfacesError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prefs.json"), []byte("{nope"), 0644))

	s, err := prefs.Open(dir)
	require.NoError(t, err)

	assert.Error(t, s.Set(prefs.KeyUserID, "u1"))
}
