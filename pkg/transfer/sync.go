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
	"io/fs"
	"sort"

	"github.com/rs/zerolog"
	"github.com/walteh/syncrc/pkg/vfs"
	"gitlab.com/tozd/go/errors"
)

// 🔄 Model decides how a sync reconciles the target with the source
type Model string

const (
	// ModelUpdate copies files that are missing on the target or differ in
	// size, or whose source is newer. Nothing is deleted.
	ModelUpdate Model = "update"
	// ModelFull is ModelUpdate plus deletion of target entries that do not
	// exist on the source.
	ModelFull Model = "full"
)

// 🔧 SyncOptions configures a sync
type SyncOptions struct {
	Ignore             *Ignore
	Model              Model
	PreserveTargetMode bool
	// Op labels the copy results, OpTransfer when empty
	Op Op
}

// Sync makes dst on dstFs match src on srcFs according to opts.Model.
// Unchanged files produce no result.
func (e *Engine) Sync(ctx context.Context, src, dst string, srcFs, dstFs vfs.FileSystem, opts SyncOptions) ([]Result, error) {
	logger := zerolog.Ctx(ctx)

	switch opts.Model {
	case ModelUpdate, ModelFull:
	default:
		return nil, errors.Errorf("unknown sync model %q", opts.Model)
	}

	logger.Debug().Str("source", src).Str("target", dst).Str("model", string(opts.Model)).Msg("sync")

	info, err := srcFs.Stat(ctx, src)
	if err != nil {
		return nil, errors.Errorf("stat source %s: %w", src, err)
	}

	if !info.IsDir() {
		return e.syncFile(ctx, src, dst, srcFs, dstFs, info, opts)
	}

	op := opts.Op.or(OpTransfer)
	if pattern, ok := opts.Ignore.Match(""); ok {
		return []Result{Ignored{Path: src, Operation: op, Reason: pattern}}, nil
	}

	col := &collector{}

	srcTree, err := walk(ctx, srcFs, src, opts.Ignore, op, col)
	if err != nil {
		return nil, err
	}

	// the target side reports listing failures but not ignored entries
	dstTree := &tree{}
	if _, err := dstFs.Stat(ctx, dst); err == nil {
		dstTree, err = walk(ctx, dstFs, dst, opts.Ignore, op, nil)
		if err != nil {
			return nil, err
		}
	} else if !vfs.IsNotExist(err) {
		return nil, errors.Errorf("stat target %s: %w", dst, err)
	} else if err := dstFs.MkdirAll(ctx, dst); err != nil {
		return nil, errors.Errorf("creating target root %s: %w", dst, err)
	}

	dstFiles := make(map[string]fs.FileInfo, len(dstTree.files))
	for _, f := range dstTree.files {
		dstFiles[f.rel] = f.info
	}
	dstDirs := make(map[string]bool, len(dstTree.dirs))
	for _, d := range dstTree.dirs {
		dstDirs[d.rel] = true
	}

	missingDirs := []entry{}
	for _, d := range srcTree.dirs {
		if !dstDirs[d.rel] {
			missingDirs = append(missingDirs, d)
		}
	}
	failedDirs := ensureDirs(ctx, dstFs, dst, missingDirs, col)

	changed := []entry{}
	for _, f := range srcTree.files {
		if needsUpdate(f.info, dstFiles[f.rel]) {
			changed = append(changed, f)
		}
	}

	err = e.fanOut(ctx, changed, func(ctx context.Context, ent entry) {
		source := srcFs.Join(src, ent.rel)
		if failedDirs[parentRel(ent.rel)] {
			col.add(Failure{Path: source, Operation: op, Err: errors.Errorf("target directory for %s could not be created", ent.rel)})
			return
		}
		if err := copyFile(ctx, srcFs, dstFs, source, dstFs.Join(dst, ent.rel), ent.info.Mode().Perm(), opts.PreserveTargetMode); err != nil {
			col.add(Failure{Path: source, Operation: op, Err: err})
			return
		}
		col.add(Success{Path: source, Operation: op})
	})
	if err != nil {
		return nil, err
	}

	if opts.Model == ModelFull {
		if err := e.prune(ctx, dst, dstFs, srcTree, dstTree, col); err != nil {
			return nil, err
		}
	}

	return col.list(), nil
}

func (e *Engine) syncFile(ctx context.Context, src, dst string, srcFs, dstFs vfs.FileSystem, info fs.FileInfo, opts SyncOptions) ([]Result, error) {
	op := opts.Op.or(OpTransfer)
	if pattern, ok := opts.Ignore.MatchRoot(src); ok {
		return []Result{Ignored{Path: src, Operation: op, Reason: pattern}}, nil
	}

	var target fs.FileInfo
	if ti, err := dstFs.Stat(ctx, dst); err == nil {
		target = ti
	}
	if !needsUpdate(info, target) {
		return nil, nil
	}

	if target == nil {
		if err := dstFs.MkdirAll(ctx, dstFs.Join(dst, "..")); err != nil {
			return []Result{Failure{Path: src, Operation: op, Err: err}}, nil
		}
	}
	if err := copyFile(ctx, srcFs, dstFs, src, dst, info.Mode().Perm(), opts.PreserveTargetMode); err != nil {
		return []Result{Failure{Path: src, Operation: op, Err: err}}, nil
	}
	return []Result{Success{Path: src, Operation: op}}, nil
}

// prune removes target entries absent from the source, files first, then
// directories deepest first
func (e *Engine) prune(ctx context.Context, dst string, dstFs vfs.FileSystem, srcTree, dstTree *tree, col *collector) error {
	srcFiles := make(map[string]bool, len(srcTree.files))
	for _, f := range srcTree.files {
		srcFiles[f.rel] = true
	}
	srcDirs := make(map[string]bool, len(srcTree.dirs))
	for _, d := range srcTree.dirs {
		srcDirs[d.rel] = true
	}

	extraFiles := []entry{}
	for _, f := range dstTree.files {
		if !srcFiles[f.rel] {
			extraFiles = append(extraFiles, f)
		}
	}

	err := e.fanOut(ctx, extraFiles, func(ctx context.Context, ent entry) {
		target := dstFs.Join(dst, ent.rel)
		if err := dstFs.Remove(ctx, target); err != nil {
			col.add(Failure{Path: target, Operation: OpRemove, Err: err})
			return
		}
		col.add(Success{Path: target, Operation: OpRemove})
	})
	if err != nil {
		return err
	}

	extraDirs := []entry{}
	for _, d := range dstTree.dirs {
		if !srcDirs[d.rel] {
			extraDirs = append(extraDirs, d)
		}
	}
	sort.SliceStable(extraDirs, func(i, j int) bool { return depth(extraDirs[i].rel) > depth(extraDirs[j].rel) })

	kept := map[string]bool{}
	for _, rel := range dstTree.pinned {
		keep(kept, rel)
	}

	for _, d := range extraDirs {
		if kept[d.rel] {
			continue
		}
		target := dstFs.Join(dst, d.rel)
		if err := dstFs.Remove(ctx, target); err != nil {
			col.add(Failure{Path: target, Operation: OpRemove, Err: err})
			continue
		}
		col.add(Success{Path: target, Operation: OpRemove})
	}

	return nil
}

func needsUpdate(src, dst fs.FileInfo) bool {
	if dst == nil {
		return true
	}
	if dst.IsDir() {
		return true
	}
	if src.Size() != dst.Size() {
		return true
	}
	return src.ModTime().After(dst.ModTime())
}
