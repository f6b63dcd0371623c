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

package opts

import (
	"github.com/walteh/syncrc/pkg/config"
	"github.com/walteh/syncrc/pkg/output"
	"github.com/walteh/syncrc/pkg/remote"
	"github.com/walteh/syncrc/pkg/task"
	"github.com/walteh/syncrc/pkg/transfer"
	"github.com/walteh/syncrc/pkg/watcher"
	"go.uber.org/multierr"
)

// RootOpts contains shared options used by all commands. It is filled in
// once the root flags are parsed.
type RootOpts struct {
	File     *config.File
	HostName string
	Silent   bool
	Output   *output.Channel
	Watcher  *watcher.Controller
}

// Host returns the selected host profile
func (o *RootOpts) Host() (*config.Config, error) {
	return o.File.Find(o.HostName)
}

// Runner builds the tasks for cfg, sized by its concurrency
func (o *RootOpts) Runner(cfg *config.Config) *task.Runner {
	return task.NewRunner(remote.NewConnector(), transfer.NewEngine(cfg.Concurrency), o.Watcher, o.Output)
}

// Close releases the watcher and the diagnostic log
func (o *RootOpts) Close() error {
	var err error
	if o.Watcher != nil {
		err = multierr.Append(err, o.Watcher.Close())
	}
	if o.Output != nil {
		err = multierr.Append(err, o.Output.Close())
	}
	return err
}
