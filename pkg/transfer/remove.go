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

package transfer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/syncrc/pkg/vfs"
	"gitlab.com/tozd/go/errors"
)

// 🗑️ RemoveOptions configures a removal
type RemoveOptions struct {
	Ignore *Ignore
	// SkipDir keeps directories and removes only the files inside them
	SkipDir bool
}

// Remove deletes target (a file or a tree) on fsys. A missing target yields
// no results. Directories that still hold ignored or undeletable entries are
// kept.
func (e *Engine) Remove(ctx context.Context, target string, fsys vfs.FileSystem, opts RemoveOptions) ([]Result, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("target", target).Bool("skip_dir", opts.SkipDir).Msg("remove")

	info, err := fsys.Stat(ctx, target)
	if err != nil {
		if vfs.IsNotExist(err) {
			logger.Debug().Str("target", target).Msg("nothing to remove")
			return nil, nil
		}
		return nil, errors.Errorf("stat %s: %w", target, err)
	}

	if !info.IsDir() {
		if pattern, ok := opts.Ignore.MatchRoot(target); ok {
			return []Result{Ignored{Path: target, Operation: OpRemove, Reason: pattern}}, nil
		}
		if err := fsys.Remove(ctx, target); err != nil {
			return []Result{Failure{Path: target, Operation: OpRemove, Err: err}}, nil
		}
		return []Result{Success{Path: target, Operation: OpRemove}}, nil
	}

	if pattern, ok := opts.Ignore.Match(""); ok {
		return []Result{Ignored{Path: target, Operation: OpRemove, Reason: pattern}}, nil
	}

	col := &collector{}

	t, err := walk(ctx, fsys, target, opts.Ignore, OpRemove, col)
	if err != nil {
		return nil, err
	}

	kept := map[string]bool{}
	for _, rel := range t.pinned {
		keep(kept, rel)
	}

	var (
		mu          sync.Mutex
		failedFiles []string
	)
	err = e.fanOut(ctx, t.files, func(ctx context.Context, ent entry) {
		name := fsys.Join(target, ent.rel)
		if err := fsys.Remove(ctx, name); err != nil {
			col.add(Failure{Path: name, Operation: OpRemove, Err: err})
			mu.Lock()
			failedFiles = append(failedFiles, ent.rel)
			mu.Unlock()
			return
		}
		col.add(Success{Path: name, Operation: OpRemove})
	})
	if err != nil {
		return nil, err
	}

	if opts.SkipDir {
		return col.list(), nil
	}

	for _, rel := range failedFiles {
		keep(kept, rel)
	}

	dirs := append([]entry(nil), t.dirs...)
	sort.SliceStable(dirs, func(i, j int) bool { return depth(dirs[i].rel) > depth(dirs[j].rel) })

	for _, d := range dirs {
		if kept[d.rel] {
			continue
		}
		name := fsys.Join(target, d.rel)
		if err := fsys.Remove(ctx, name); err != nil {
			col.add(Failure{Path: name, Operation: OpRemove, Err: err})
			keep(kept, d.rel)
			continue
		}
		col.add(Success{Path: name, Operation: OpRemove})
	}

	if !kept[""] {
		if err := fsys.Remove(ctx, target); err != nil {
			col.add(Failure{Path: target, Operation: OpRemove, Err: err})
		} else {
			col.add(Success{Path: target, Operation: OpRemove})
		}
	}

	return col.list(), nil
}

// keep marks every ancestor of rel, including the root (""), as kept. A rel
// ending in "/" also keeps the directory itself.
func keep(kept map[string]bool, rel string) {
	if strings.HasSuffix(rel, "/") {
		rel = strings.TrimSuffix(rel, "/")
		kept[rel] = true
	}
	kept[""] = true
	for p := parentRel(rel); p != ""; p = parentRel(p) {
		kept[p] = true
	}
}
