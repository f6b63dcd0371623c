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
	"net"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/walteh/syncrc/pkg/config"
)

// 🔑 HostInfo is the subset of a host profile a transport needs to connect.
// It is a value type; copies never share state with the config it came from.
type HostInfo struct {
	Protocol        string
	Host            string
	Port            int
	Username        string
	Password        string // empty when absent
	PrivateKeyPath  string // empty when absent
	Passphrase      string // empty when absent
	Passive         bool
	InteractiveAuth bool
	Agent           string // empty when absent
}

// ExtractHostInfo projects cfg down to its connection fields. Absent optional
// fields stay absent.
func ExtractHostInfo(cfg *config.Config) HostInfo {
	return HostInfo{
		Protocol:        cfg.Protocol,
		Host:            cfg.Host,
		Port:            cfg.Port,
		Username:        cfg.Username,
		Password:        cfg.Password,
		PrivateKeyPath:  cfg.PrivateKeyPath,
		Passphrase:      cfg.Passphrase,
		Passive:         cfg.Passive,
		InteractiveAuth: cfg.InteractiveAuth,
		Agent:           cfg.Agent,
	}
}

// Address returns host:port
func (h HostInfo) Address() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// MarshalZerologObject logs the host without secrets
func (h HostInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Str("protocol", h.Protocol).
		Str("address", h.Address()).
		Str("username", h.Username).
		Bool("password", h.Password != "").
		Bool("private_key", h.PrivateKeyPath != "").
		Bool("agent", h.Agent != "").
		Bool("passive", h.Passive).
		Bool("interactive_auth", h.InteractiveAuth)
}
