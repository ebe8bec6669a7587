package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"new mp3", fsnotify.Event{Name: "/m/a.mp3", Op: fsnotify.Create}, true},
		{"rewritten flac", fsnotify.Event{Name: "/m/a.FLAC", Op: fsnotify.Write}, true},
		{"new text file", fsnotify.Event{Name: "/m/notes.txt", Op: fsnotify.Create}, false},
		{"removed anything", fsnotify.Event{Name: "/m/old", Op: fsnotify.Remove}, true},
		{"renamed anything", fsnotify.Event{Name: "/m/x.txt", Op: fsnotify.Rename}, true},
		{"chmod", fsnotify.Event{Name: "/m/a.mp3", Op: fsnotify.Chmod}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.ev))
		})
	}
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32
	w, err := New(nil, func() { calls.Add(1) }, Options{Debounce: time.Second, Clock: clock})
	require.NoError(t, err)
	defer w.stop()

	for range 3 {
		w.handle(fsnotify.Event{Name: "/m/a.mp3", Op: fsnotify.Create})
		clock.Advance(500 * time.Millisecond)
	}
	assert.Zero(t, calls.Load())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	w.handle(fsnotify.Event{Name: "/m/notes.txt", Op: fsnotify.Write})
	clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_SeesNewFiles(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "artist")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	changed := make(chan struct{}, 4)
	w, err := New([]string{root}, func() { changed <- struct{}{} }, Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(sub, "song.mp3"), []byte("x"), 0o600))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("change not reported")
	}
}
