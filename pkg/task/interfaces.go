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

package task

import (
	"context"
	"time"

	"github.com/walteh/syncrc/pkg/config"
	"github.com/walteh/syncrc/pkg/remote"
	"github.com/walteh/syncrc/pkg/transfer"
	"github.com/walteh/syncrc/pkg/vfs"
)

// 🔌 Connector yields a fresh remote filesystem for a host. Failures are
// *remote.ConnectionError.
type Connector interface {
	Connect(ctx context.Context, info remote.HostInfo) (vfs.FileSystem, error)
}

// 🚚 Transfers are the tree operations a task delegates to
type Transfers interface {
	Transport(ctx context.Context, src, dst string, srcFs, dstFs vfs.FileSystem, opts transfer.TransportOptions) ([]transfer.Result, error)
	Sync(ctx context.Context, src, dst string, srcFs, dstFs vfs.FileSystem, opts transfer.SyncOptions) ([]transfer.Result, error)
	Remove(ctx context.Context, target string, fsys vfs.FileSystem, opts transfer.RemoveOptions) ([]transfer.Result, error)
}

// 👀 WatcherSwitch turns local change detection on and off per config.
// Both calls are idempotent.
type WatcherSwitch interface {
	Disable(cfg *config.Config)
	Enable(cfg *config.Config)
}

// 📺 Reporter receives traces and status messages
type Reporter interface {
	Debug(text string)
	Status(text string, d time.Duration)
	FocusDiagnostics()
}

var (
	_ Connector = (*remote.Connector)(nil)
	_ Transfers = (*transfer.Engine)(nil)
)
