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
	"path"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

var _ FileSystem = (*SFTP)(nil)

// 🌐 SFTP is a FileSystem backed by an SFTP session. It owns the session and
// the underlying transport; Close releases both.
type SFTP struct {
	client    *sftp.Client
	transport io.Closer
}

// NewSFTP wraps an established SFTP client. transport may be nil.
func NewSFTP(client *sftp.Client, transport io.Closer) *SFTP {
	return &SFTP{client: client, transport: transport}
}

func (s *SFTP) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	info, err := s.client.Stat(name)
	if err != nil {
		return nil, errors.Errorf("stat %s: %w", name, err)
	}
	return info, nil
}

func (s *SFTP) List(ctx context.Context, dir string) ([]fs.FileInfo, error) {
	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, errors.Errorf("reading directory %s: %w", dir, err)
	}
	return infos, nil
}

func (s *SFTP) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := s.client.Open(name)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

// Create writes to a temp file next to name and renames it into place on
// Close. The rename needs the posix-rename extension, which OpenSSH servers
// provide.
func (s *SFTP) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	tempPath := tempName(name)
	f, err := s.client.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return nil, errors.Errorf("creating temp file for %s: %w", name, err)
	}
	return &sftpAtomicFile{File: f, client: s.client, temp: tempPath, target: name}, nil
}

func (s *SFTP) MkdirAll(ctx context.Context, dir string) error {
	if err := s.client.MkdirAll(dir); err != nil {
		return errors.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

func (s *SFTP) Remove(ctx context.Context, name string) error {
	info, err := s.client.Lstat(name)
	if err != nil {
		return errors.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		err = s.client.RemoveDirectory(name)
	} else {
		err = s.client.Remove(name)
	}
	if err != nil {
		return errors.Errorf("removing %s: %w", name, err)
	}
	return nil
}

func (s *SFTP) Chmod(ctx context.Context, name string, mode fs.FileMode) error {
	if err := s.client.Chmod(name, mode); err != nil {
		return errors.Errorf("chmod %s: %w", name, err)
	}
	return nil
}

func (s *SFTP) Join(base, rel string) string {
	if rel == "" || rel == "." {
		return path.Clean(base)
	}
	return path.Join(base, rel)
}

func (s *SFTP) Close() error {
	err := s.client.Close()
	if s.transport != nil {
		err = multierr.Append(err, s.transport.Close())
	}
	if err != nil {
		return errors.Errorf("closing sftp session: %w", err)
	}
	return nil
}

func tempName(name string) string {
	return path.Join(path.Dir(name), "."+path.Base(name)+"."+uuid.NewString()[:8]+".tmp")
}

// 🔒 sftpAtomicFile renames the remote temp file over the target on Close
type sftpAtomicFile struct {
	*sftp.File
	client *sftp.Client
	temp   string
	target string
}

func (f *sftpAtomicFile) Close() error {
	if err := f.File.Close(); err != nil {
		_ = f.client.Remove(f.temp)
		return errors.Errorf("closing temp file: %w", err)
	}

	if err := f.client.PosixRename(f.temp, f.target); err != nil {
		_ = f.client.Remove(f.temp)
		return errors.Errorf("renaming temp file: %w", err)
	}

	return nil
}
