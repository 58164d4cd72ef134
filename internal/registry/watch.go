package registry

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/goliatone/go-procure/pkg/condition"
	"github.com/goliatone/go-procure/pkg/form"
	"github.com/goliatone/go-procure/pkg/model"
)

// LoadFunc builds a fresh registry.
type LoadFunc func(ctx context.Context) (*Registry, error)

// Live serves the most recently loaded registry. It is safe for concurrent
// use; instances already mounted keep the schema they were built with.
type Live struct {
	current atomic.Pointer[Registry]
	load    LoadFunc
	logger  *zap.Logger

	// Debounce groups bursts of writes into one reload.
	Debounce time.Duration
}

// NewLive loads a first registry. A failing first load is returned as is.
func NewLive(ctx context.Context, load LoadFunc, logger *zap.Logger) (*Live, error) {
	if load == nil {
		return nil, errors.New("registry: load func is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	reg, err := load(ctx)
	if err != nil {
		return nil, err
	}
	l := &Live{load: load, logger: logger, Debounce: 300 * time.Millisecond}
	l.current.Store(reg)
	return l, nil
}

// Current returns the registry in use.
func (l *Live) Current() *Registry { return l.current.Load() }

func (l *Live) Names() []string { return l.Current().Names() }

func (l *Live) Schema(name string) (model.FormModel, error) { return l.Current().Schema(name) }

func (l *Live) Mount(name string, session condition.Session, opts ...form.Option) (*form.Instance, error) {
	return l.Current().Mount(name, session, opts...)
}

func (l *Live) Collections() []string { return l.Current().Collections() }

// Reload swaps in a new registry. On error the previous one stays in place.
func (l *Live) Reload(ctx context.Context) error {
	reg, err := l.load(ctx)
	if err != nil {
		return err
	}
	l.current.Store(reg)
	return nil
}

// Watch reloads whenever the file at path changes, until ctx is done. The
// parent directory is watched so editors that replace the file on save are
// still seen.
func (l *Live) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	l.logger.Info("watching form definitions", zap.String("path", abs))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			pending = time.After(l.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("form watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := l.Reload(ctx); err != nil {
				l.logger.Error("form reload failed, keeping previous forms", zap.Error(err))
				continue
			}
			l.logger.Info("form definitions reloaded", zap.Strings("forms", l.Names()))
		}
	}
}
