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
	"github.com/spf13/cobra"
	"github.com/walteh/syncrc/cmd/syncrc/opts"
	"github.com/walteh/syncrc/pkg/task"
)

// NewSyncCmd creates the sync command with its remote and local directions
func NewSyncCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile a local tree with its remote counterpart",
		Long: `Sync compares both trees and copies what changed according to the
host's sync_mode:
  update  copy new and changed files, never delete
  full    like update, then delete what only exists on the target`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "remote [path]",
			Short: "Sync local changes to the remote",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runTask(o, func(r *task.Runner) task.Task { return r.SyncToRemote }),
		},
		&cobra.Command{
			Use:   "local [path]",
			Short: "Sync remote changes to the local tree",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runTask(o, func(r *task.Runner) task.Task { return r.SyncToLocal }),
		},
	)

	return cmd
}
