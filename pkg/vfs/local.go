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

package vfs

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

var _ FileSystem = (*Local)(nil)

// 🖥️ Local is a FileSystem on the local disk
type Local struct{}

// NewLocal returns the local filesystem
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, errors.Errorf("stat %s: %w", name, err)
	}
	return info, nil
}

func (l *Local) List(ctx context.Context, dir string) ([]fs.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Errorf("reading directory %s: %w", dir, err)
	}
	infos := make([]fs.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Errorf("stat %s: %w", entry.Name(), err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (l *Local) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

// Create writes to a temp file next to name and renames it into place on Close
func (l *Local) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return nil, errors.Errorf("creating temp file for %s: %w", name, err)
	}
	return &atomicFile{File: tmp, target: name}, nil
}

func (l *Local) MkdirAll(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

func (l *Local) Remove(ctx context.Context, name string) error {
	if err := os.Remove(name); err != nil {
		return errors.Errorf("removing %s: %w", name, err)
	}
	return nil
}

func (l *Local) Chmod(ctx context.Context, name string, mode fs.FileMode) error {
	if err := os.Chmod(name, mode); err != nil {
		return errors.Errorf("chmod %s: %w", name, err)
	}
	return nil
}

func (l *Local) Join(base, rel string) string {
	if rel == "" || rel == "." {
		return filepath.Clean(base)
	}
	return filepath.Join(base, filepath.FromSlash(rel))
}

func (l *Local) Close() error {
	return nil
}

// 🔒 atomicFile renames the temp file over the target on Close
type atomicFile struct {
	*os.File
	target string
}

func (f *atomicFile) Close() error {
	tempPath := f.File.Name()

	if err := f.File.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("setting mode on temp file: %w", err)
	}

	// Rename temp file to target (atomic operation)
	if err := os.Rename(tempPath, f.target); err != nil {
		os.Remove(tempPath) // Clean up temp file
		return errors.Errorf("renaming temp file: %w", err)
	}

	return nil
}
