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

	"github.com/stretchr/testify/mock"
	"github.com/walteh/syncrc/pkg/config"
	"github.com/walteh/syncrc/pkg/remote"
	"github.com/walteh/syncrc/pkg/transfer"
	"github.com/walteh/syncrc/pkg/vfs"
)

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Connect(ctx context.Context, info remote.HostInfo) (vfs.FileSystem, error) {
	args := m.Called(ctx, info)
	fsys, _ := args.Get(0).(vfs.FileSystem)
	return fsys, args.Error(1)
}

type mockTransfers struct {
	mock.Mock
}

func results(args mock.Arguments) ([]transfer.Result, error) {
	res, _ := args.Get(0).([]transfer.Result)
	return res, args.Error(1)
}

func (m *mockTransfers) Transport(ctx context.Context, src, dst string, srcFs, dstFs vfs.FileSystem, opts transfer.TransportOptions) ([]transfer.Result, error) {
	return results(m.Called(ctx, src, dst, srcFs, dstFs, opts))
}

func (m *mockTransfers) Sync(ctx context.Context, src, dst string, srcFs, dstFs vfs.FileSystem, opts transfer.SyncOptions) ([]transfer.Result, error) {
	return results(m.Called(ctx, src, dst, srcFs, dstFs, opts))
}

func (m *mockTransfers) Remove(ctx context.Context, target string, fsys vfs.FileSystem, opts transfer.RemoveOptions) ([]transfer.Result, error) {
	return results(m.Called(ctx, target, fsys, opts))
}

type mockWatcher struct {
	mock.Mock
}

func (m *mockWatcher) Disable(cfg *config.Config) {
	m.Called(cfg)
}

func (m *mockWatcher) Enable(cfg *config.Config) {
	m.Called(cfg)
}

func (m *mockWatcher) count(method string) int {
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

type mockReporter struct {
	mock.Mock
}

func newMockReporter() *mockReporter {
	m := &mockReporter{}
	m.On("Debug", mock.Anything).Return()
	m.On("Status", mock.Anything, mock.Anything).Return()
	m.On("FocusDiagnostics").Return()
	return m
}

func (m *mockReporter) Debug(text string) {
	m.Called(text)
}

func (m *mockReporter) Status(text string, d time.Duration) {
	m.Called(text, d)
}

func (m *mockReporter) FocusDiagnostics() {
	m.Called()
}

func (m *mockReporter) debugs() []string {
	var out []string
	for _, c := range m.Calls {
		if c.Method == "Debug" {
			out = append(out, c.Arguments.String(0))
		}
	}
	return out
}

// remoteStub stands in for a connected remote filesystem; only Close is used
type remoteStub struct {
	vfs.FileSystem
	closed int
}

func (r *remoteStub) Close() error {
	r.closed++
	return nil
}
