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

// Package transfer implements the tree operations behind every task:
// one-way transport, directional sync and removal. Per-entry problems are
// returned as Failure results; only problems that stop the whole operation
// are returned as errors.
package transfer

import (
	"context"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/syncrc/pkg/vfs"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// ⚙️ Engine runs transfer operations with bounded per-file concurrency
type Engine struct {
	concurrency int
}

// NewEngine creates an engine running at most concurrency file operations at once
func NewEngine(concurrency int) *Engine {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Engine{concurrency: concurrency}
}

// 📥 collector gathers results from concurrent workers
type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) list() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

// 🌳 entry is a node found while walking, rel is slash separated
type entry struct {
	rel  string
	info fs.FileInfo
}

type tree struct {
	files []entry
	dirs  []entry // parents before children
	// pinned holds rels of ignored entries and of directories that could
	// not be listed; their ancestors must survive a removal
	pinned []string
}

// walk lists root recursively. A failure to list root is returned as an
// error; failures below root and ignored entries are reported through col
// when it is non nil. Ignored directories are not descended into.
func walk(ctx context.Context, fsys vfs.FileSystem, root string, ignore *Ignore, op Op, col *collector) (*tree, error) {
	t := &tree{}

	rootInfos, err := fsys.List(ctx, root)
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", root, err)
	}

	type pending struct {
		rel   string
		infos []fs.FileInfo
	}
	queue := []pending{{rel: "", infos: rootInfos}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cur := queue[0]
		queue = queue[1:]

		sort.Slice(cur.infos, func(i, j int) bool { return cur.infos[i].Name() < cur.infos[j].Name() })

		for _, info := range cur.infos {
			rel := info.Name()
			if cur.rel != "" {
				rel = cur.rel + "/" + info.Name()
			}

			if pattern, ok := ignore.Match(rel); ok {
				t.pinned = append(t.pinned, rel)
				if col != nil {
					col.add(Ignored{Path: fsys.Join(root, rel), Operation: op, Reason: pattern})
				}
				continue
			}

			if !info.IsDir() {
				t.files = append(t.files, entry{rel: rel, info: info})
				continue
			}

			t.dirs = append(t.dirs, entry{rel: rel, info: info})

			children, err := fsys.List(ctx, fsys.Join(root, rel))
			if err != nil {
				t.pinned = append(t.pinned, rel+"/")
				if col != nil {
					col.add(Failure{Path: fsys.Join(root, rel), Operation: op, Err: err})
				}
				continue
			}
			queue = append(queue, pending{rel: rel, infos: children})
		}
	}

	return t, nil
}

// fanOut runs fn for every entry with the engine's concurrency limit. fn
// reports per entry outcomes itself; only cancellation stops the fan out.
func (e *Engine) fanOut(ctx context.Context, entries []entry, fn func(ctx context.Context, ent entry)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, ent := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(gctx, ent)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return errors.Errorf("transfer interrupted: %w", err)
	}
	return nil
}

// copyFile streams src into dst and gives dst the source mode srcMode. When
// preserveTargetMode is set and dst existed before, its own permission bits
// are restored instead. A zero srcMode leaves the mode to dstFs.
func copyFile(ctx context.Context, srcFs, dstFs vfs.FileSystem, src, dst string, srcMode fs.FileMode, preserveTargetMode bool) error {
	var (
		targetMode fs.FileMode
		hadTarget  bool
	)
	if preserveTargetMode {
		if info, err := dstFs.Stat(ctx, dst); err == nil {
			targetMode = info.Mode().Perm()
			hadTarget = true
		}
	}

	r, err := srcFs.Open(ctx, src)
	if err != nil {
		return errors.Errorf("opening source: %w", err)
	}
	defer r.Close()

	w, err := dstFs.Create(ctx, dst)
	if err != nil {
		return errors.Errorf("creating target: %w", err)
	}

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Errorf("copying content: %w", err)
	}

	if err := w.Close(); err != nil {
		return errors.Errorf("finishing target: %w", err)
	}

	logger := zerolog.Ctx(ctx)

	switch {
	case hadTarget:
		if err := dstFs.Chmod(ctx, dst, targetMode); err != nil {
			return errors.Errorf("restoring target mode: %w", err)
		}
	case srcMode != 0:
		// content is in place, a host refusing chmod keeps its default mode
		if err := dstFs.Chmod(ctx, dst, srcMode); err != nil {
			logger.Warn().Err(err).Str("target", dst).Msg("applying source mode")
		}
	}

	logger.Trace().Str("source", src).Str("target", dst).Msg("copied file")
	return nil
}

// ensureDirs creates every directory of t below dst in parent first order
func ensureDirs(ctx context.Context, dstFs vfs.FileSystem, dst string, dirs []entry, col *collector) map[string]bool {
	failed := map[string]bool{}
	for _, d := range dirs {
		if failed[parentRel(d.rel)] {
			failed[d.rel] = true
			continue
		}
		target := dstFs.Join(dst, d.rel)
		if err := dstFs.MkdirAll(ctx, target); err != nil {
			failed[d.rel] = true
			col.add(Failure{Path: target, Operation: OpMkdir, Err: err})
		}
	}
	return failed
}

func parentRel(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}

func depth(rel string) int {
	return strings.Count(rel, "/")
}
