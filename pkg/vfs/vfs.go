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

// Package vfs abstracts the filesystem primitives the transfer operations
// need, so the same algorithms run against the local disk and a remote host.
package vfs

import (
	"context"
	"io"
	"io/fs"

	"gitlab.com/tozd/go/errors"
)

// 💾 FileSystem is the capability set shared by local and remote trees.
//
// Paths are native to the implementation. Join converts a slash separated
// relative path into a native path below base.
type FileSystem interface {
	Stat(ctx context.Context, name string) (fs.FileInfo, error)
	List(ctx context.Context, dir string) ([]fs.FileInfo, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Create replaces or creates name. The content becomes visible at name
	// only once the returned writer is closed without error; until then name
	// keeps its previous content.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	MkdirAll(ctx context.Context, dir string) error
	// Remove deletes a file or an empty directory
	Remove(ctx context.Context, name string) error
	Chmod(ctx context.Context, name string, mode fs.FileMode) error
	Join(base, rel string) string
	Close() error
}

// IsNotExist reports whether err means the path does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
