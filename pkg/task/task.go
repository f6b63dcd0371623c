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

// Package task binds connections, transfer operations, watcher suppression
// and result reporting into the five user facing tasks.
//
// Every task acquires a fresh connection, runs one transfer operation and
// reports its results. Connection and operation errors are returned to the
// caller unchanged and skip the report. Tasks that write into the local tree
// disable the watcher for their config while the operation runs.
//
// Concurrent tasks on the same config share one watcher flag; the first
// suppressed task to finish re-enables the watcher. Callers that need
// stronger guarantees must not overlap suppressed tasks.
package task

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/syncrc/pkg/config"
	"github.com/walteh/syncrc/pkg/remote"
	"github.com/walteh/syncrc/pkg/transfer"
	"github.com/walteh/syncrc/pkg/vfs"
)

// Task display labels
const (
	LabelUpload       = "upload"
	LabelDownload     = "download"
	LabelSyncToRemote = "sync remote"
	LabelSyncToLocal  = "sync local"
	LabelRemoveRemote = "remove"
)

// 🎯 Task runs one operation for source against the host of cfg. silent
// replaces the success status with an empty one.
type Task func(ctx context.Context, source string, cfg *config.Config, silent bool) error

// operation is the part of a task that differs between tasks
type operation func(ctx context.Context, source string, cfg *config.Config, remoteFs vfs.FileSystem, ignore *transfer.Ignore) ([]transfer.Result, error)

// 🏃 Runner holds the collaborators shared by all tasks
type Runner struct {
	connector Connector
	transfers Transfers
	watcher   WatcherSwitch
	reporter  Reporter
	local     vfs.FileSystem

	Upload       Task
	Download     Task
	SyncToRemote Task
	SyncToLocal  Task
	RemoveRemote Task
}

// Option configures a Runner
type Option func(*Runner)

// WithLocal replaces the local filesystem
func WithLocal(fsys vfs.FileSystem) Option {
	return func(r *Runner) {
		r.local = fsys
	}
}

// 🏭 NewRunner builds the five tasks around the given collaborators
func NewRunner(connector Connector, transfers Transfers, watcher WatcherSwitch, reporter Reporter, opts ...Option) *Runner {
	r := &Runner{
		connector: connector,
		transfers: transfers,
		watcher:   watcher,
		reporter:  reporter,
		local:     vfs.NewLocal(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.Upload = r.makeTask(LabelUpload, false, r.upload)
	r.Download = r.makeTask(LabelDownload, true, r.download)
	r.SyncToRemote = r.makeTask(LabelSyncToRemote, false, r.syncToRemote)
	r.SyncToLocal = r.makeTask(LabelSyncToLocal, true, r.syncToLocal)
	r.RemoveRemote = r.makeTask(LabelRemoveRemote, false, r.removeRemote)

	return r
}

// ByLabel returns the task with the given display label
func (r *Runner) ByLabel(label string) (Task, bool) {
	switch label {
	case LabelUpload:
		return r.Upload, true
	case LabelDownload:
		return r.Download, true
	case LabelSyncToRemote:
		return r.SyncToRemote, true
	case LabelSyncToLocal:
		return r.SyncToLocal, true
	case LabelRemoveRemote:
		return r.RemoveRemote, true
	}
	return nil, false
}

func (r *Runner) makeTask(name string, suppressWatcher bool, op operation) Task {
	return func(ctx context.Context, source string, cfg *config.Config, silent bool) error {
		logger := zerolog.Ctx(ctx).With().
			Str("task", name).
			Str("task_id", uuid.New().String()).
			Str("host", cfg.Name).
			Logger()
		ctx = logger.WithContext(ctx)

		r.reporter.Debug("")
		r.reporter.Debug(fmt.Sprintf("task: %s %s", name, source))

		ignore, err := contextIgnore(cfg, source)
		if err != nil {
			return err
		}

		remoteFs, err := r.connector.Connect(ctx, remote.ExtractHostInfo(cfg))
		if err != nil {
			logger.Debug().Err(err).Msg("connection failed")
			return err
		}
		defer func() {
			if err := remoteFs.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing remote connection")
			}
		}()

		results, err := r.run(ctx, suppressWatcher, cfg, func() ([]transfer.Result, error) {
			return op(ctx, source, cfg, remoteFs, ignore)
		})
		if err != nil {
			logger.Debug().Err(err).Msg("operation failed")
			return err
		}

		logger.Debug().Int("results", len(results)).Msg("operation finished")
		Report(r.reporter, name, results, silent)
		return nil
	}
}

// contextIgnore compiles the ignore patterns of cfg, anchored at cfg.Context
// so a source below the context is matched by its context relative path
func contextIgnore(cfg *config.Config, source string) (*transfer.Ignore, error) {
	ignore, err := transfer.NewIgnore(cfg.Ignore...)
	if err != nil {
		return nil, err
	}
	if cfg.Context == "" {
		return ignore, nil
	}
	rel, err := filepath.Rel(cfg.Context, source)
	if err != nil {
		return ignore, nil
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return ignore, nil
	}
	return ignore.Within(rel), nil
}

// run invokes fn with the watcher of cfg disabled when suppress is set. The
// watcher is re-enabled before run returns, whatever fn does.
func (r *Runner) run(ctx context.Context, suppress bool, cfg *config.Config, fn func() ([]transfer.Result, error)) ([]transfer.Result, error) {
	if suppress {
		zerolog.Ctx(ctx).Trace().Str("key", cfg.Key()).Msg("disabling watcher")
		r.watcher.Disable(cfg)
		defer func() {
			r.watcher.Enable(cfg)
			zerolog.Ctx(ctx).Trace().Str("key", cfg.Key()).Msg("watcher enabled")
		}()
	}
	return fn()
}

func (r *Runner) upload(ctx context.Context, source string, cfg *config.Config, remoteFs vfs.FileSystem, ignore *transfer.Ignore) ([]transfer.Result, error) {
	return r.transfers.Transport(ctx, source, cfg.RemotePath, r.local, remoteFs, transfer.TransportOptions{
		Ignore:             ignore,
		PreserveTargetMode: cfg.Protocol == config.ProtocolSFTP,
		Op:                 transfer.OpUpload,
	})
}

func (r *Runner) download(ctx context.Context, source string, cfg *config.Config, remoteFs vfs.FileSystem, ignore *transfer.Ignore) ([]transfer.Result, error) {
	return r.transfers.Transport(ctx, cfg.RemotePath, source, remoteFs, r.local, transfer.TransportOptions{
		Ignore:             ignore,
		PreserveTargetMode: false,
		Op:                 transfer.OpDownload,
	})
}

func (r *Runner) syncToRemote(ctx context.Context, source string, cfg *config.Config, remoteFs vfs.FileSystem, ignore *transfer.Ignore) ([]transfer.Result, error) {
	return r.transfers.Sync(ctx, source, cfg.RemotePath, r.local, remoteFs, transfer.SyncOptions{
		Ignore:             ignore,
		Model:              transfer.Model(cfg.SyncMode),
		PreserveTargetMode: true,
		Op:                 transfer.OpUpload,
	})
}

func (r *Runner) syncToLocal(ctx context.Context, source string, cfg *config.Config, remoteFs vfs.FileSystem, ignore *transfer.Ignore) ([]transfer.Result, error) {
	return r.transfers.Sync(ctx, cfg.RemotePath, source, remoteFs, r.local, transfer.SyncOptions{
		Ignore:             ignore,
		Model:              transfer.Model(cfg.SyncMode),
		PreserveTargetMode: false,
		Op:                 transfer.OpDownload,
	})
}

// removeRemote deletes cfg.RemotePath; source only appears in the trace
func (r *Runner) removeRemote(ctx context.Context, source string, cfg *config.Config, remoteFs vfs.FileSystem, ignore *transfer.Ignore) ([]transfer.Result, error) {
	return r.transfers.Remove(ctx, cfg.RemotePath, remoteFs, transfer.RemoveOptions{
		Ignore:  ignore,
		SkipDir: cfg.SkipDir,
	})
}
