package theme

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const debounceDelay = 150 * time.Millisecond

// Watcher monitors theme config directories and reloads the palette when a
// file in them changes. Bursts of events are debounced into one reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	reload   func() Palette
	onChange func(Palette)

	mu       sync.Mutex
	debounce *time.Timer
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher watches the config directories of every supported terminal
// under the user's home. onChange runs on the watcher's goroutine after
// the new palette is active.
func NewWatcher(onChange func(Palette)) (*Watcher, error) {
	home, _ := os.UserHomeDir()
	var dirs []string
	if home != "" {
		for _, t := range terminals {
			dirs = append(dirs, t.dir(home))
		}
	}
	return newWatcher(dirs, Refresh, onChange)
}

func newWatcher(dirs []string, reload func() Palette, onChange func(Palette)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		// Missing directories are skipped
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			log.Debug().Err(err).Str("dir", dir).Msg("theme: cannot watch directory")
		}
	}

	w := &Watcher{
		watcher:  fsw,
		reload:   reload,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Debug().Err(err).Msg("theme: watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, func() {
		p := w.reload()
		log.Debug().Str("fg", p.FG).Str("bg", p.BG).Msg("theme reloaded")
		if w.onChange != nil {
			w.onChange(p)
		}
	})
}

// Stop closes the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()
	})
}
