// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package watcher turns local file changes below a host context into
// upload and delete events. Delivery can be switched off per host while a
// task writes into the context itself.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/walteh/syncrc/pkg/config"
	"github.com/walteh/syncrc/pkg/transfer"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

const defaultDebounce = 200 * time.Millisecond

// EventOp is the kind of local change
type EventOp int

const (
	// OpChange covers creation and modification
	OpChange EventOp = iota
	// OpDelete covers removal and rename away
	OpDelete
)

func (op EventOp) String() string {
	switch op {
	case OpChange:
		return "change"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// 📣 Event is a debounced change of one path below the context
type Event struct {
	Path string // absolute local path
	Op   EventOp
}

// Handler receives events in path order, one batch at a time
type Handler func(ctx context.Context, cfg *config.Config, ev Event)

// Option configures a Controller
type Option func(*Controller)

// WithDebounce sets how long a path must be quiet before its event is delivered
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.debounce = d
	}
}

// 👀 Controller owns every watch of the process and the per host switch
// that tasks flip while they write into a context.
type Controller struct {
	mu       sync.Mutex
	disabled map[string]bool
	watches  []*watch
	closed   bool
	debounce time.Duration
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		disabled: map[string]bool{},
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enable resumes event delivery for cfg. Enabling twice is a no-op.
func (c *Controller) Enable(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.disabled, cfg.Key())
}

// Disable drops events for cfg until it is enabled again. Disabling twice is a no-op.
func (c *Controller) Disable(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled[cfg.Key()] = true
}

// Enabled reports whether events for cfg are delivered
func (c *Controller) Enabled(cfg *config.Config) bool {
	return c.enabled(cfg.Key())
}

func (c *Controller) enabled(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disabled[key]
}

// Watch starts watching cfg.Context recursively and returns once the
// watch is established. Events stop when ctx is done or the controller is
// closed.
func (c *Controller) Watch(ctx context.Context, cfg *config.Config, handler Handler) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("watcher controller is closed")
	}
	c.mu.Unlock()

	w, err := newWatch(cfg, handler, c.debounce)
	if err != nil {
		return err
	}

	if err := w.addRecursive(ctx, cfg.Context, nil); err != nil {
		w.fsw.Close()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		w.fsw.Close()
		return errors.New("watcher controller is closed")
	}
	c.watches = append(c.watches, w)
	c.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Str("host", cfg.Name).Str("context", cfg.Context).Str("files", w.files).Msg("watching")

	w.wg.Add(1)
	go w.run(ctx, c)

	return nil
}

// Close stops every watch and waits for running handlers to return
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	watches := c.watches
	c.watches = nil
	c.mu.Unlock()

	var err error
	for _, w := range watches {
		err = multierr.Append(err, w.stop())
	}
	return err
}

type watch struct {
	cfg      *config.Config
	key      string
	root     string
	files    string
	ignore   *transfer.Ignore
	handler  Handler
	debounce time.Duration

	fsw  *fsnotify.Watcher
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func newWatch(cfg *config.Config, handler Handler, debounce time.Duration) (*watch, error) {
	if cfg.Context == "" {
		return nil, errors.New("config has no context to watch")
	}

	ignore, err := transfer.NewIgnore(cfg.Ignore...)
	if err != nil {
		return nil, err
	}

	files := "**"
	if cfg.Watcher != nil && cfg.Watcher.Files != "" {
		files = cfg.Watcher.Files
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Errorf("creating fsnotify watcher: %w", err)
	}

	return &watch{
		cfg:      cfg,
		key:      cfg.Key(),
		root:     cfg.Context,
		files:    files,
		ignore:   ignore,
		handler:  handler,
		debounce: debounce,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

func (w *watch) stop() error {
	w.once.Do(func() { close(w.done) })
	err := w.fsw.Close()
	w.wg.Wait()
	if err != nil {
		return errors.Errorf("closing watcher for %s: %w", w.root, err)
	}
	return nil
}

// addRecursive adds dir and every non ignored directory below it. When
// found is non nil, files already present are passed to it; this covers
// files written into a new directory before its watch was added.
func (w *watch) addRecursive(ctx context.Context, dir string, found func(path string)) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p != dir && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return errors.Errorf("walking %s: %w", p, err)
		}

		rel, ok := w.rel(p)
		if !ok {
			return nil
		}
		if _, ignored := w.ignore.Match(rel); ignored {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			if found != nil {
				found(p)
			}
			return nil
		}

		if err := w.fsw.Add(p); err != nil {
			return errors.Errorf("watching %s: %w", p, err)
		}
		zerolog.Ctx(ctx).Trace().Str("dir", p).Msg("added watch")
		return nil
	})
}

func (w *watch) rel(p string) (string, bool) {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// accepts reports whether an event for p passes the ignore list and the files glob
func (w *watch) accepts(p string) bool {
	rel, ok := w.rel(p)
	if !ok || rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	if _, ignored := w.ignore.Match(rel); ignored {
		return false
	}
	matched, _ := doublestar.Match(w.files, rel)
	return matched
}

func (w *watch) run(ctx context.Context, c *Controller) {
	defer w.wg.Done()

	logger := zerolog.Ctx(ctx).With().Str("host", w.cfg.Name).Logger()
	ctx = logger.WithContext(ctx)

	pending := map[string]EventOp{}
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	queue := func(p string, op EventOp) {
		if !c.enabled(w.key) {
			logger.Trace().Str("path", p).Msg("watcher disabled, dropping event")
			return
		}
		if !w.accepts(p) {
			return
		}
		pending[p] = op
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			switch {
			case event.Has(fsnotify.Create):
				if isDir(event.Name) {
					if err := w.addRecursive(ctx, event.Name, func(p string) { queue(p, OpChange) }); err != nil {
						logger.Warn().Err(err).Str("dir", event.Name).Msg("watching new directory")
					}
					continue
				}
				queue(event.Name, OpChange)
			case event.Has(fsnotify.Write):
				queue(event.Name, OpChange)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				queue(event.Name, OpDelete)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("watcher error")

		case <-timer.C:
			batch := pending
			pending = map[string]EventOp{}
			w.flush(ctx, c, batch)
		}
	}
}

func (w *watch) flush(ctx context.Context, c *Controller, batch map[string]EventOp) {
	paths := make([]string, 0, len(batch))
	for p := range batch {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		default:
		}
		if !c.enabled(w.key) {
			continue
		}
		w.handler(ctx, w.cfg, Event{Path: p, Op: batch[p]})
	}
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
