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

package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/syncrc/cmd/syncrc/commands"
	"github.com/walteh/syncrc/cmd/syncrc/opts"
	"github.com/walteh/syncrc/pkg/config"
	"github.com/walteh/syncrc/pkg/output"
	"github.com/walteh/syncrc/pkg/watcher"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	hostName   string
	debug      bool
	silent     bool
	logFile    string
)

// newRootCmd wires the commands around a RootOpts that is filled in once
// flags are parsed
func newRootCmd() (*cobra.Command, *opts.RootOpts) {
	o := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "syncrc",
		Short: "Keep a local tree in sync with a remote host",
		Long: `syncrc uploads, downloads and reconciles a local project tree with its
counterpart on a remote host (sftp, or a locally mounted path).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initRootOpts(cmd, o)
		},
	}

	addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewUploadCmd(o),
		commands.NewDownloadCmd(o),
		commands.NewSyncCmd(o),
		commands.NewRemoveCmd(o),
		commands.NewWatchCmd(o),
		commands.NewListCmd(o),
	)

	return rootCmd, o
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: discovered from the working directory)")
	cmd.PersistentFlags().StringVarP(&hostName, "host", "H", "", "host profile to use when the config has several")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "print diagnostics as they are written")
	cmd.PersistentFlags().BoolVarP(&silent, "silent", "s", false, "do not show a status when a task succeeds")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", defaultLogFile(), "diagnostic log file")
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "syncrc", "syncrc.log")
}

// initRootOpts sets up logging and loads the config
func initRootOpts(cmd *cobra.Command, o *opts.RootOpts) error {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	o.Output = output.New(output.Options{
		Console: cmd.ErrOrStderr(),
		LogFile: logFile,
		Debug:   debug,
		Level:   level,
	})
	logger := o.Output.Logger()
	ctx := logger.WithContext(cmd.Context())
	cmd.SetContext(ctx)

	path := configFile
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Errorf("getting working directory: %w", err)
		}
		if path, err = config.Discover(wd); err != nil {
			return err
		}
	}

	file, err := config.Load(ctx, path)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	o.File = file
	o.HostName = hostName
	o.Silent = silent
	o.Watcher = watcher.NewController()

	return nil
}
