package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watcher reports changes to one settings file.
type Watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
}

// Watch calls onChange once per burst of writes to path. The directory is
// watched rather than the file so editors that save by rename are seen.
// onChange runs on the watcher's goroutine.
func Watch(path string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{fs: fsw, done: make(chan struct{})}
	name := filepath.Base(path)

	go func() {
		defer close(w.done)
		debounce := time.NewTimer(watchDebounce)
		debounce.Stop()
		pending := false

		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = true
				debounce.Reset(watchDebounce)

			case <-debounce.C:
				if pending {
					pending = false
					onChange()
				}

			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return w, nil
}

func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	err := w.fs.Close()
	<-w.done
	return err
}
