// Package watcher reports changes under the library directories so the
// catalog can be rescanned without a manual scan.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/llehouerou/wavesd/internal/tags"
)

// DefaultDebounce is the quiet period after the last change before the
// callback runs.
const DefaultDebounce = 2 * time.Second

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Clock    clockwork.Clock
}

// Watcher calls a function once a burst of changes to music files or
// folders has settled.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	clock    clockwork.Clock
	onChange func()

	mu    sync.Mutex
	timer clockwork.Timer
}

// New watches every directory under roots. onChange runs on its own
// goroutine and never concurrently with itself.
func New(roots []string, onChange func(), opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fw,
		debounce: opts.Debounce,
		clock:    opts.Clock,
		onChange: serialize(onChange),
	}
	for _, root := range roots {
		w.addTree(root)
	}
	return w, nil
}

// serialize drops calls made while a previous call is still running.
func serialize(fn func()) func() {
	var running sync.Mutex
	return func() {
		if !running.TryLock() {
			log.Debug().Msg("watcher: change handler busy, skipping")
			return
		}
		defer running.Unlock()
		fn()
	}
}

// addTree watches root and all its subdirectories.
func (w *Watcher) addTree(root string) {
	conf := fastwalk.Config{}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug().Err(err).Str("dir", path).Msg("watcher: skipping directory")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			log.Warn().Err(err).Str("dir", path).Msg("watcher: cannot watch directory")
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("root", root).Msg("watcher: walking root")
	}
}

// Run dispatches filesystem events until ctx is done, then releases the
// watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher: error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addTree(ev.Name)
			w.schedule()
			return
		}
	}
	if relevant(ev) {
		w.schedule()
	}
}

// relevant reports whether ev may change the catalog. Removed or renamed
// entries always count since their kind can no longer be checked.
func relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		return true
	}
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
		return tags.IsMusicFile(ev.Name)
	}
	return false
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = w.clock.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()
		w.onChange()
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	if err := w.fs.Close(); err != nil {
		log.Debug().Err(err).Msg("watcher: close")
	}
}
