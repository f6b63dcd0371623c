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

package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Supported protocols
const (
	ProtocolSFTP  = "sftp"
	ProtocolFTP   = "ftp"
	ProtocolLocal = "local"
)

// 🔄 Sync modes understood by the transfer package
const (
	SyncModeUpdate = "update"
	SyncModeFull   = "full"
)

const (
	defaultSFTPPort    = 22
	defaultFTPPort     = 21
	defaultRemotePath  = "/"
	defaultConcurrency = 4
)

// 👀 WatcherArgs configures local change detection for a host
type WatcherArgs struct {
	Files      string `json:"files" yaml:"files" toml:"files"`                   // Glob of files to watch, relative to the context
	AutoUpload bool   `json:"auto_upload" yaml:"auto_upload" toml:"auto_upload"` // Upload on create/change
	AutoDelete bool   `json:"auto_delete" yaml:"auto_delete" toml:"auto_delete"` // Remove remotely on local delete
}

// 📚 Config is the full configuration of one host profile.
//
// It is owned by the caller and treated as read-only by tasks.
type Config struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Context string `json:"context,omitempty" yaml:"context,omitempty" toml:"context,omitempty"` // Local root

	Protocol        string `json:"protocol,omitempty" yaml:"protocol,omitempty" toml:"protocol,omitempty"`
	Host            string `json:"host,omitempty" yaml:"host,omitempty" toml:"host,omitempty"`
	Port            int    `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty"`
	Username        string `json:"username,omitempty" yaml:"username,omitempty" toml:"username,omitempty"`
	Password        string `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
	PrivateKeyPath  string `json:"private_key_path,omitempty" yaml:"private_key_path,omitempty" toml:"private_key_path,omitempty"`
	Passphrase      string `json:"passphrase,omitempty" yaml:"passphrase,omitempty" toml:"passphrase,omitempty"`
	Passive         bool   `json:"passive,omitempty" yaml:"passive,omitempty" toml:"passive,omitempty"`
	InteractiveAuth bool   `json:"interactive_auth,omitempty" yaml:"interactive_auth,omitempty" toml:"interactive_auth,omitempty"`
	Agent           string `json:"agent,omitempty" yaml:"agent,omitempty" toml:"agent,omitempty"` // SSH agent socket

	RemotePath  string       `json:"remote_path,omitempty" yaml:"remote_path,omitempty" toml:"remote_path,omitempty"`
	Ignore      []string     `json:"ignore,omitempty" yaml:"ignore,omitempty" toml:"ignore,omitempty"`
	SyncMode    string       `json:"sync_mode,omitempty" yaml:"sync_mode,omitempty" toml:"sync_mode,omitempty"`
	SkipDir     bool         `json:"skip_dir,omitempty" yaml:"skip_dir,omitempty" toml:"skip_dir,omitempty"`
	Concurrency int          `json:"concurrency,omitempty" yaml:"concurrency,omitempty" toml:"concurrency,omitempty"`
	Watcher     *WatcherArgs `json:"watcher,omitempty" yaml:"watcher,omitempty" toml:"watcher,omitempty"`
}

// 📦 File is the decoded content of a config file
type File struct {
	Hosts []Config `json:"hosts" yaml:"hosts" toml:"hosts"`

	location string
}

// Location returns the path the file was loaded from, if any
func (f *File) Location() string {
	return f.location
}

// 🔍 Find returns the host profile with the given name. An empty name
// selects the only profile of a single-profile file.
func (f *File) Find(name string) (*Config, error) {
	if name == "" {
		if len(f.Hosts) == 1 {
			return &f.Hosts[0], nil
		}
		return nil, errors.Errorf("config has %d hosts, one must be selected by name", len(f.Hosts))
	}
	for i := range f.Hosts {
		if f.Hosts[i].Name == name {
			return &f.Hosts[i], nil
		}
	}
	return nil, errors.Errorf("host %q not found, options: %s", name, strings.Join(f.Names(), ", "))
}

// Names lists the host profile names in file order
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Hosts))
	for _, h := range f.Hosts {
		names = append(names, h.Name)
	}
	return names
}

// 🔍 Validate applies defaults and validates every host. baseDir is used to
// resolve relative contexts.
func (f *File) Validate(baseDir string) error {
	if len(f.Hosts) == 0 {
		return errors.Errorf("at least one host is required")
	}

	seen := map[string]bool{}
	for i := range f.Hosts {
		h := &f.Hosts[i]
		if h.Name == "" && len(f.Hosts) == 1 {
			h.Name = "default"
		}
		if seen[h.Name] {
			return errors.Errorf("duplicate host name %q", h.Name)
		}
		seen[h.Name] = true

		h.ApplyDefaults(baseDir)
		if err := h.Validate(); err != nil {
			return errors.Errorf("host %q: %w", h.Name, err)
		}
	}
	return nil
}

// ApplyDefaults fills unset fields the same way for every parser
func (c *Config) ApplyDefaults(baseDir string) {
	if c.Protocol == "" {
		c.Protocol = ProtocolSFTP
	}
	if c.Port == 0 {
		switch c.Protocol {
		case ProtocolSFTP:
			c.Port = defaultSFTPPort
		case ProtocolFTP:
			c.Port = defaultFTPPort
		}
	}
	if c.RemotePath == "" {
		c.RemotePath = defaultRemotePath
	}
	if c.SyncMode == "" {
		c.SyncMode = SyncModeUpdate
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.Context == "" {
		c.Context = baseDir
	} else if !filepath.IsAbs(c.Context) && baseDir != "" {
		c.Context = filepath.Join(baseDir, c.Context)
	}
	if c.Context != "" {
		c.Context = filepath.Clean(c.Context)
	}
}

// 🔍 Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Protocol {
	case ProtocolSFTP, ProtocolFTP:
		if c.Host == "" {
			return errors.Errorf("host is required for protocol %s", c.Protocol)
		}
		if !path.IsAbs(c.RemotePath) {
			return errors.Errorf("remote_path must be absolute, got %q", c.RemotePath)
		}
	case ProtocolLocal:
	default:
		return errors.Errorf("unsupported protocol %q", c.Protocol)
	}

	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port out of range: %d", c.Port)
	}

	switch c.SyncMode {
	case SyncModeUpdate, SyncModeFull:
	default:
		return errors.Errorf("unknown sync_mode %q", c.SyncMode)
	}

	for _, pattern := range c.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	if c.Watcher != nil && c.Watcher.Files != "" && !doublestar.ValidatePattern(c.Watcher.Files) {
		return errors.Errorf("invalid watcher files pattern %q", c.Watcher.Files)
	}

	return nil
}

// Key identifies the configuration for per-config state such as the watcher
func (c *Config) Key() string {
	return c.Name + "@" + c.Context
}

// 🗺️ RemotePathFor maps a local path inside the context to its remote path
func (c *Config) RemotePathFor(localPath string) (string, error) {
	rel, err := filepath.Rel(c.Context, localPath)
	if err != nil {
		return "", errors.Errorf("relating %s to context: %w", localPath, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.Errorf("%s is outside of context %s", localPath, c.Context)
	}
	if rel == "." {
		return c.RemotePath, nil
	}
	return path.Join(c.RemotePath, rel), nil
}

// Scoped returns a copy of c whose remote path targets localPath. The copy
// keeps the key of c, so watcher state is shared with it.
func (c *Config) Scoped(localPath string) (*Config, error) {
	remotePath, err := c.RemotePathFor(localPath)
	if err != nil {
		return nil, err
	}
	scoped := *c
	scoped.RemotePath = remotePath
	scoped.Ignore = append([]string(nil), c.Ignore...)
	return &scoped, nil
}

// 📝 String returns a string representation of the config
func (c *Config) String() string {
	if c.Protocol == ProtocolLocal {
		return fmt.Sprintf("%s: %s -> local:%s", c.Name, c.Context, c.RemotePath)
	}
	user := c.Username
	if user != "" {
		user += "@"
	}
	return fmt.Sprintf("%s: %s -> %s://%s%s:%d%s", c.Name, c.Context, c.Protocol, user, c.Host, c.Port, c.RemotePath)
}
