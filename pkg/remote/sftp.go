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
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"github.com/walteh/syncrc/pkg/config"
	"github.com/walteh/syncrc/pkg/vfs"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultDialTimeout = 20 * time.Second

func init() {
	RegisterProvider(&SFTPProvider{})
}

// 🌐 SFTPProvider connects over SSH and opens an SFTP session
type SFTPProvider struct {
	// DialTimeout bounds the TCP dial and SSH handshake. Zero means 20s.
	DialTimeout time.Duration
	// KnownHostsPath overrides ~/.ssh/known_hosts
	KnownHostsPath string
}

func (p *SFTPProvider) Name() string {
	return config.ProtocolSFTP
}

// Connect dials the host, authenticates and starts an SFTP session
func (p *SFTPProvider) Connect(ctx context.Context, info HostInfo) (vfs.FileSystem, error) {
	timeout := p.DialTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}

	auth, closeAgent, err := authMethods(info)
	if err != nil {
		return nil, &ConnectionError{Protocol: info.Protocol, Address: info.Address(), Err: err}
	}
	defer closeAgent()

	hostKeyCallback, err := p.hostKeyCallback(ctx)
	if err != nil {
		return nil, &ConnectionError{Protocol: info.Protocol, Address: info.Address(), Err: err}
	}

	clientConfig := &ssh.ClientConfig{
		User:            info.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", info.Address())
	if err != nil {
		return nil, &ConnectionError{Protocol: info.Protocol, Address: info.Address(), Err: errors.Errorf("dialing: %w", err)}
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, info.Address(), clientConfig)
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Protocol: info.Protocol, Address: info.Address(), Err: errors.Errorf("ssh handshake: %w", err)}
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, &ConnectionError{Protocol: info.Protocol, Address: info.Address(), Err: errors.Errorf("starting sftp subsystem: %w", err)}
	}

	return vfs.NewSFTP(session, client), nil
}

func (p *SFTPProvider) hostKeyCallback(ctx context.Context) (ssh.HostKeyCallback, error) {
	path := p.KnownHostsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Errorf("locating home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	if _, err := os.Stat(path); err != nil {
		zerolog.Ctx(ctx).Warn().Str("known_hosts", path).Msg("known_hosts not found, host key is not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, errors.Errorf("reading known_hosts: %w", err)
	}
	return callback, nil
}

// authMethods builds the auth chain in the order agent, key, password,
// keyboard-interactive. The returned func releases the agent connection.
func authMethods(info HostInfo) ([]ssh.AuthMethod, func(), error) {
	var methods []ssh.AuthMethod
	closeAgent := func() {}

	if info.Agent != "" {
		conn, err := net.Dial("unix", info.Agent)
		if err != nil {
			return nil, closeAgent, errors.Errorf("connecting to ssh agent %s: %w", info.Agent, err)
		}
		closeAgent = func() { conn.Close() }
		methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
	}

	if info.PrivateKeyPath != "" {
		signer, err := loadSigner(info.PrivateKeyPath, info.Passphrase)
		if err != nil {
			closeAgent()
			return nil, func() {}, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if info.Password != "" {
		methods = append(methods, ssh.Password(info.Password))
	}

	if info.InteractiveAuth {
		password := info.Password
		methods = append(methods, ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				if !echos[i] {
					answers[i] = password
				}
			}
			return answers, nil
		}))
	}

	if len(methods) == 0 {
		return nil, closeAgent, errors.New("no authentication method configured")
	}

	return methods, closeAgent, nil
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Errorf("locating home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	key, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading private key: %w", err)
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, errors.Errorf("parsing private key %s: %w", path, err)
	}
	return signer, nil
}
