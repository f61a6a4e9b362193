package watch

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/mwhitford/filecabinet/pkg/apperr"
	"github.com/mwhitford/filecabinet/pkg/logger"
)

// Watcher adapts fsnotify notifications into pipeline events
type Watcher struct {
	fs     *fsnotify.Watcher
	events chan Event
}

// NewWatcher starts watching the given directories (non-recursive)
func NewWatcher(dirs ...string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperr.Unavailable("watch", "filesystem watching is not available")
	}

	for _, dir := range dirs {
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return nil, apperr.Filesystem("watch", "could not watch directory", err)
		}
	}

	return &Watcher{
		fs:     fs,
		events: make(chan Event, 64),
	}, nil
}

// Events is the channel to feed into a Pipeline. It closes when Run
// returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run forwards fsnotify events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) {
	log := logger.WithName("watcher")
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			var op Op
			switch {
			case ev.Op.Has(fsnotify.Create):
				op = OpCreated
			case ev.Op.Has(fsnotify.Write):
				op = OpModified
			case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
				op = OpRemoved
			default:
				continue
			}
			select {
			case w.events <- Event{Path: ev.Name, Op: op}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("Watcher error")
		}
	}
}

// Close stops the underlying watcher
func (w *Watcher) Close() error {
	return w.fs.Close()
}
