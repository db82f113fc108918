package settings

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path, language.AmericanEnglish, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestStore_Defaults(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "nested", "settings.db"))
	defer s.Close()

	tag, err := s.Language()
	require.NoError(t, err)
	assert.Equal(t, language.AmericanEnglish, tag)

	_, ok, err := s.LastBackup()
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, all.LastBackup)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	at := time.Date(2024, time.March, 15, 3, 0, 0, 0, time.UTC)

	s := openStore(t, path)
	require.NoError(t, s.SetLanguage(language.MustParse("id-ID")))
	require.NoError(t, s.SetLastBackup(at))
	require.NoError(t, s.Close())

	s = openStore(t, path)
	defer s.Close()
	all, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, language.MustParse("id-ID"), all.Language)
	require.NotNil(t, all.LastBackup)
	assert.True(t, at.Equal(*all.LastBackup))
}

func TestStore_RejectsUndeterminedLanguage(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "settings.db"))
	defer s.Close()
	assert.Error(t, s.SetLanguage(language.Und))
}
