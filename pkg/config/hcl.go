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
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return hasExt(filename, ".hcl")
}

type hclWatcher struct {
	Files      string `hcl:"files,optional"`
	AutoUpload bool   `hcl:"auto_upload,optional"`
	AutoDelete bool   `hcl:"auto_delete,optional"`
}

type hclHost struct {
	Name            string      `hcl:"name,label"`
	Context         string      `hcl:"context,optional"`
	Protocol        string      `hcl:"protocol,optional"`
	Host            string      `hcl:"host,optional"`
	Port            int         `hcl:"port,optional"`
	Username        string      `hcl:"username,optional"`
	Password        string      `hcl:"password,optional"`
	PrivateKeyPath  string      `hcl:"private_key_path,optional"`
	Passphrase      string      `hcl:"passphrase,optional"`
	Passive         bool        `hcl:"passive,optional"`
	InteractiveAuth bool        `hcl:"interactive_auth,optional"`
	Agent           string      `hcl:"agent,optional"`
	RemotePath      string      `hcl:"remote_path,optional"`
	Ignore          []string    `hcl:"ignore,optional"`
	SyncMode        string      `hcl:"sync_mode,optional"`
	SkipDir         bool        `hcl:"skip_dir,optional"`
	Concurrency     int         `hcl:"concurrency,optional"`
	Watcher         *hclWatcher `hcl:"watcher,block"`
}

type hclFile struct {
	Hosts []hclHost `hcl:"host,block"`
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*File, error) {
	parser := hclparse.NewParser()
	hclF, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var raw hclFile
	diags = gohcl.DecodeBody(hclF.Body, evalCtx, &raw)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	file := &File{Hosts: make([]Config, 0, len(raw.Hosts))}
	for _, h := range raw.Hosts {
		cfg := Config{
			Name:            h.Name,
			Context:         h.Context,
			Protocol:        h.Protocol,
			Host:            h.Host,
			Port:            h.Port,
			Username:        h.Username,
			Password:        h.Password,
			PrivateKeyPath:  h.PrivateKeyPath,
			Passphrase:      h.Passphrase,
			Passive:         h.Passive,
			InteractiveAuth: h.InteractiveAuth,
			Agent:           h.Agent,
			RemotePath:      h.RemotePath,
			Ignore:          h.Ignore,
			SyncMode:        h.SyncMode,
			SkipDir:         h.SkipDir,
			Concurrency:     h.Concurrency,
		}
		if h.Watcher != nil {
			cfg.Watcher = &WatcherArgs{
				Files:      h.Watcher.Files,
				AutoUpload: h.Watcher.AutoUpload,
				AutoDelete: h.Watcher.AutoDelete,
			}
		}
		file.Hosts = append(file.Hosts, cfg)
	}

	return file, nil
}
