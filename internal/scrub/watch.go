package scrub

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/imxin/internal/logging"
)

// Reloadable is a Scrubber backed by a rules file that is reloaded when the
// file changes. A reload that fails keeps the previous rules.
type Reloadable struct {
	path   string
	logger *logging.Logger
	cur    atomic.Pointer[box]

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
}

type box struct{ Scrubber }

// NewReloadable loads the rules file at path (see LoadConfig).
func NewReloadable(path string, logger *logging.Logger) (*Reloadable, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Reloadable{path: filepath.Clean(path), logger: logger.Named("scrub")}
	if path == "" {
		r.path = ""
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Scrub delegates to the current rules.
func (r *Reloadable) Scrub(text string) *Result { return r.cur.Load().Scrub(text) }

// Enabled delegates to the current rules.
func (r *Reloadable) Enabled() bool { return r.cur.Load().Enabled() }

// Reload re-reads the rules file.
func (r *Reloadable) Reload() error {
	cfg, err := LoadConfig(r.path)
	if err != nil {
		return err
	}
	s, err := New(cfg)
	if err != nil {
		return err
	}
	r.cur.Store(&box{s})
	return nil
}

// Watch reloads the rules whenever the file is written, created or
// replaced, until ctx is done or Close is called. The parent directory is
// watched so editors that save by rename are picked up. Without a rules
// file Watch does nothing.
func (r *Reloadable) Watch(ctx context.Context) error {
	if r.path == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher != nil {
		return fmt.Errorf("already watching %s", r.path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create rules watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
	}
	r.watcher = w
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop(ctx, w, r.stop, r.done)
	return nil
}

func (r *Reloadable) loop(ctx context.Context, w *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != r.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Warn(ctx, "scrub rules reload failed, keeping previous rules", zap.Error(err))
				continue
			}
			r.logger.Info(ctx, "scrub rules reloaded", zap.String("path", r.path))
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.logger.Warn(ctx, "scrub rules watcher error", zap.Error(err))
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (r *Reloadable) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher == nil {
		return nil
	}
	close(r.stop)
	err := r.watcher.Close()
	<-r.done
	r.watcher = nil
	return err
}
