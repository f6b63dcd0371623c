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

	"github.com/rs/zerolog"
	"github.com/walteh/syncrc/pkg/vfs"
	"gitlab.com/tozd/go/errors"
)

// 📦 TransportOptions configures a one-way copy
type TransportOptions struct {
	Ignore             *Ignore
	PreserveTargetMode bool
	// Op labels the copy results, OpTransfer when empty
	Op Op
}

// 🚚 Transport copies src (a file or a tree) from srcFs to dst on dstFs.
// Every file yields a result; a missing or unreadable source root is an error.
func (e *Engine) Transport(ctx context.Context, src, dst string, srcFs, dstFs vfs.FileSystem, opts TransportOptions) ([]Result, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("source", src).Str("target", dst).Bool("preserve_target_mode", opts.PreserveTargetMode).Msg("transport")

	info, err := srcFs.Stat(ctx, src)
	if err != nil {
		return nil, errors.Errorf("stat source %s: %w", src, err)
	}

	op := opts.Op.or(OpTransfer)
	col := &collector{}

	if !info.IsDir() {
		if pattern, ok := opts.Ignore.MatchRoot(src); ok {
			return []Result{Ignored{Path: src, Operation: op, Reason: pattern}}, nil
		}
		if err := dstFs.MkdirAll(ctx, dstFs.Join(dst, "..")); err != nil {
			return []Result{Failure{Path: src, Operation: op, Err: err}}, nil
		}
		if err := copyFile(ctx, srcFs, dstFs, src, dst, info.Mode().Perm(), opts.PreserveTargetMode); err != nil {
			return []Result{Failure{Path: src, Operation: op, Err: err}}, nil
		}
		return []Result{Success{Path: src, Operation: op}}, nil
	}

	if pattern, ok := opts.Ignore.Match(""); ok {
		return []Result{Ignored{Path: src, Operation: op, Reason: pattern}}, nil
	}

	t, err := walk(ctx, srcFs, src, opts.Ignore, op, col)
	if err != nil {
		return nil, err
	}

	if err := dstFs.MkdirAll(ctx, dst); err != nil {
		return nil, errors.Errorf("creating target root %s: %w", dst, err)
	}

	failedDirs := ensureDirs(ctx, dstFs, dst, t.dirs, col)

	err = e.fanOut(ctx, t.files, func(ctx context.Context, ent entry) {
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

	return col.list(), nil
}
