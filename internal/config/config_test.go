//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "tilde expands to home", input: "~/music", expected: filepath.Join(home, "music")},
		{name: "absolute path unchanged", input: "/usr/local/music", expected: "/usr/local/music"},
		{name: "relative path unchanged", input: "music/albums", expected: "music/albums"},
		{name: "empty string unchanged", input: "", expected: ""},
		{name: "tilde only", input: "~", expected: home},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) == 0 {
		t.Fatal("getConfigPaths() returned empty slice")
	}

	// Last path should be local config.toml
	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}
}

func TestLoadFiles_Defaults(t *testing.T) {
	cfg, err := LoadFiles(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7878", cfg.ListenAddr())
	assert.Equal(t, 8, cfg.ServerWorkers())
	assert.Equal(t, 44100, cfg.GetAudioConfig().SampleRate)
	assert.Equal(t, 100, cfg.GetAudioConfig().BufferMs)
	assert.InDelta(t, 3.0, cfg.PreviousThreshold(), 1e-9)
	assert.Equal(t, 8, cfg.ScanWorkers())
	assert.True(t, cfg.MPRISEnabled())
	assert.Equal(t, filepath.Join(cfg.DataPath(), "wavesd.db"), cfg.DatabasePath())
}

func TestLoadFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.toml")
	second := filepath.Join(dir, "second.toml")

	require.NoError(t, os.WriteFile(first, []byte(`
library_sources = ["/music"]
data_dir = "/tmp/wavesd"
mpris = false

[server]
listen = "127.0.0.1:9000"

[playback]
previous_threshold = 5.0
`), 0o600))
	require.NoError(t, os.WriteFile(second, []byte(`
[server]
listen = "0.0.0.0:9001"
workers = 2

[scan]
watch = true
workers = 3

[audio]
sample_rate = 48000
`), 0o600))

	cfg, err := LoadFiles(first, second)
	require.NoError(t, err)

	assert.Equal(t, []string{"/music"}, cfg.LibrarySources)
	assert.Equal(t, "0.0.0.0:9001", cfg.ListenAddr())
	assert.Equal(t, 2, cfg.ServerWorkers())
	assert.InDelta(t, 5.0, cfg.PreviousThreshold(), 1e-9)
	assert.True(t, cfg.Scan.Watch)
	assert.Equal(t, 3, cfg.ScanWorkers())
	assert.Equal(t, 48000, cfg.GetAudioConfig().SampleRate)
	assert.False(t, cfg.MPRISEnabled())
	assert.Equal(t, "/tmp/wavesd/covers", cfg.CoversPath())
	assert.Equal(t, "/tmp/wavesd/wavesd.log", cfg.LogPath())
}

func TestLoadFiles_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("library_sources = ["), 0o600))

	_, err := LoadFiles(path)
	assert.Error(t, err)
}
