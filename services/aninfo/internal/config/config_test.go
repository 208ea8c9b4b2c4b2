package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/aninfo/internal/appstate"
	"github.com/example/aninfo/internal/fetch"
	"github.com/example/aninfo/internal/jikan"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, jikan.DefaultBaseURL, cfg.JikanURL)
	assert.Equal(t, "dark", cfg.Theme)
	assert.Equal(t, "en", cfg.Language)
	assert.False(t, cfg.NSFW)
	assert.Equal(t, fetch.DefaultPolicy, cfg.Policy())
	assert.Equal(t, appstate.Preferences{Theme: appstate.Dark, Language: appstate.EN}, cfg.Prefs())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "theme: light\nlanguage: jp\nnsfw: true\nretry:\n  attempts: 3\n  spacing: 250ms\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("ANINFO_BACKEND_URL", "http://backend:9000")
	t.Setenv("ANINFO_RETRY_ATTEMPTS", "5")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", cfg.BackendURL)
	assert.Equal(t, fetch.Policy{Attempts: 5, Spacing: 250 * time.Millisecond}, cfg.Policy())
	assert.Equal(t, appstate.Preferences{Theme: appstate.Light, Language: appstate.JP, NSFW: true}, cfg.Prefs())
}

func TestLoad_InvalidTheme(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("theme: neon\n"), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neon")
}

func TestSet_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	require.NoError(t, Set(dir, "theme", "LIGHT"))
	require.NoError(t, Set(dir, "retry.spacing", "1s"))
	require.NoError(t, Set(dir, "nsfw", "true"))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Theme)
	assert.Equal(t, time.Second, cfg.Retry.Spacing)
	assert.True(t, cfg.NSFW)

	vals, err := Values(dir)
	require.NoError(t, err)
	assert.Len(t, vals, len(Keys()))
	assert.Equal(t, "light", vals["theme"])
}

func TestSet_Rejects(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		key, value string
	}{
		{"colour", "red"},
		{"theme", "neon"},
		{"language", "fr"},
		{"nsfw", "maybe"},
		{"retry.attempts", "0"},
		{"retry.attempts", "many"},
		{"retry.spacing", "soon"},
		{"jikan_rps", "-1"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			assert.Error(t, Set(dir, tc.key, tc.value))
		})
	}
	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	assert.True(t, os.IsNotExist(err), "rejected values must not be written")
}
