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

package remote

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/syncrc/pkg/vfs"
	"gitlab.com/tozd/go/errors"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Provider{}
)

// RegisterProvider makes a provider available under its protocol name
func RegisterProvider(provider Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[provider.Name()] = provider
}

// GetProvider returns the provider registered for protocol
func GetProvider(protocol string) (Provider, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	provider, ok := registry[protocol]
	if !ok {
		options := []string{}
		for k := range registry {
			options = append(options, k)
		}
		sort.Strings(options)
		return nil, errors.Errorf("provider %s not found, options: %s", protocol, strings.Join(options, ", "))
	}
	return provider, nil
}

// 🔌 Provider produces live remote filesystems for one protocol
type Provider interface {
	// Name returns the protocol name (e.g. "sftp")
	Name() string
	// Connect returns a ready to use filesystem. The caller closes it.
	Connect(ctx context.Context, info HostInfo) (vfs.FileSystem, error)
}

// 🏭 Connector resolves the provider for a host and connects through it
type Connector struct{}

// NewConnector creates a connector backed by the provider registry
func NewConnector() *Connector {
	return &Connector{}
}

// Connect acquires a fresh remote filesystem. Every failure is reported as a
// *ConnectionError.
func (c *Connector) Connect(ctx context.Context, info HostInfo) (vfs.FileSystem, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Object("host", info).Msg("connecting")

	provider, err := GetProvider(info.Protocol)
	if err != nil {
		return nil, &ConnectionError{Protocol: info.Protocol, Address: info.Address(), Err: err}
	}

	fsys, err := provider.Connect(ctx, info)
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, &ConnectionError{Protocol: info.Protocol, Address: info.Address(), Err: err}
	}

	logger.Debug().Str("address", info.Address()).Msg("connected")
	return fsys, nil
}
