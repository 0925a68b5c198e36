package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocclock/blocclock/internal/models"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	cat := models.NewCategory(1, "Men U18", []string{"A", "B"})
	cat.RecordProgress("A", 1)
	cat.Boulders[0].HasStarted = true
	state := &models.PersistedState{
		Rounds:           []*models.Round{{Name: "Quali", Categories: []*models.Category{cat}}},
		ActiveRoundIndex: 0,
		NextCategoryID:   2,
	}

	require.NoError(t, fs.Save("hall-1", state))

	loaded, err := fs.Load("hall-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.NextCategoryID)
	require.Len(t, loaded.Rounds, 1)
	got := loaded.Rounds[0].Categories[0]
	assert.Equal(t, []int{1}, got.ClimberProgress["A"])
	assert.True(t, got.Boulders[0].HasStarted)
}

func TestLoadAbsentRoom(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	state, err := fs.Load("never-seen")
	assert.NoError(t, err)
	assert.Nil(t, state)
}

func TestLoadCorruptFileTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{half a wri"), 0o644))

	state, err := fs.Load("bad")
	assert.NoError(t, err, "corrupt state is logged, not fatal")
	assert.Nil(t, state)
}

func TestSaveOverwrites(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.Save("r", &models.PersistedState{NextCategoryID: 1}))
	require.NoError(t, fs.Save("r", &models.PersistedState{NextCategoryID: 9}))

	loaded, err := fs.Load("r")
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.NextCategoryID)
}
