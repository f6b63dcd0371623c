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
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/walteh/syncrc/cmd/syncrc/opts"
	"github.com/walteh/syncrc/pkg/config"
	"github.com/walteh/syncrc/pkg/task"
	"gitlab.com/tozd/go/errors"
)

// pick chooses one task of a runner
type pick func(r *task.Runner) task.Task

// scope resolves the local path of args, defaulting to the context, and
// narrows cfg to it
func scope(cfg *config.Config, args []string) (string, *config.Config, error) {
	local := cfg.Context
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return "", nil, errors.Errorf("resolving %s: %w", args[0], err)
		}
		local = abs
	}

	scoped, err := cfg.Scoped(local)
	if err != nil {
		return "", nil, err
	}
	return local, scoped, nil
}

// runTask is the RunE shared by the path based commands
func runTask(o *opts.RootOpts, which pick) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := o.Host()
		if err != nil {
			return err
		}

		local, scoped, err := scope(cfg, args)
		if err != nil {
			return err
		}

		return which(o.Runner(cfg))(cmd.Context(), local, scoped, o.Silent)
	}
}

// NewUploadCmd creates the upload command
func NewUploadCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "upload [path]",
		Short: "Upload a local file or directory",
		Long: `Upload copies a path below the host context to the same place below the
remote path. Without a path the whole context is uploaded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTask(o, func(r *task.Runner) task.Task { return r.Upload }),
	}
}

// NewDownloadCmd creates the download command
func NewDownloadCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "download [path]",
		Short: "Download a remote file or directory",
		Long: `Download copies the remote counterpart of a local path into place.
Local change detection is paused for the host while files are written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTask(o, func(r *task.Runner) task.Task { return r.Download }),
	}
}

// NewRemoveCmd creates the remove command
func NewRemoveCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove the remote counterpart of a local path",
		Args:  cobra.ExactArgs(1),
		RunE:  runTask(o, func(r *task.Runner) task.Task { return r.RemoveRemote }),
	}
}
