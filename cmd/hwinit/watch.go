package main

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const settleDelay = 100 * time.Millisecond

// watcher reports changes to a fixed set of configuration files. The parent
// directories are watched since editors often replace a file instead of
// writing it in place.
type watcher struct {
	fsw   *fsnotify.Watcher
	files map[string]bool
	delay time.Duration
}

func newWatcher(configs []string) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		fsw:   fsw,
		files: make(map[string]bool),
		delay: settleDelay,
	}

	dirs := make(map[string]bool)
	for _, config := range configs {
		abs, err := filepath.Abs(config)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
		dirs[dir] = true
	}
	return w, nil
}

func (w *watcher) Close() error {
	return w.fsw.Close()
}

// relevant reports whether ev changed one of the watched configurations.
func (w *watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

// run calls rebuild once a burst of changes has settled, until ctx is done.
// Rebuild errors are left to rebuild to report.
func (w *watcher) run(ctx context.Context, rebuild func() error) error {
	timer := time.NewTimer(w.delay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				timer.Reset(w.delay)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Println("watch error:", err)
		case <-timer.C:
			_ = rebuild()
		}
	}
}
