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

package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/syncrc/cmd/syncrc/opts"
	"github.com/walteh/syncrc/pkg/config"
	"github.com/walteh/syncrc/pkg/task"
	"github.com/walteh/syncrc/pkg/watcher"
	"gitlab.com/tozd/go/errors"
)

// NewWatchCmd creates the watch command
func NewWatchCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Upload local changes as they happen",
		Long: `Watch follows the host context and mirrors changes to the remote:
created and modified files are uploaded when watcher.auto_upload is set,
deleted files are removed remotely when watcher.auto_delete is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := o.Host()
			if err != nil {
				return err
			}
			if cfg.Watcher == nil || (!cfg.Watcher.AutoUpload && !cfg.Watcher.AutoDelete) {
				return errors.Errorf("host %q has neither watcher.auto_upload nor watcher.auto_delete set", cfg.Name)
			}

			if err := o.Watcher.Watch(ctx, cfg, WatchHandler(o.Runner(cfg))); err != nil {
				return err
			}

			pterm.Info.WithPrefix(pterm.Prefix{Text: "👀"}).Printfln("watching %s", cfg.String())
			<-ctx.Done()
			return nil
		},
	}
}

// WatchHandler maps watcher events to silent upload and remove tasks
func WatchHandler(runner *task.Runner) watcher.Handler {
	return func(ctx context.Context, cfg *config.Config, ev watcher.Event) {
		logger := zerolog.Ctx(ctx).With().Str("path", ev.Path).Str("event", ev.Op.String()).Logger()

		var run task.Task
		switch {
		case ev.Op == watcher.OpChange && cfg.Watcher.AutoUpload:
			run = runner.Upload
		case ev.Op == watcher.OpDelete && cfg.Watcher.AutoDelete:
			run = runner.RemoveRemote
		default:
			return
		}

		scoped, err := cfg.Scoped(ev.Path)
		if err != nil {
			logger.Warn().Err(err).Msg("event outside of context")
			return
		}

		if err := run(ctx, ev.Path, scoped, true); err != nil {
			logger.Error().Err(err).Msg("watch task failed")
		}
	}
}
