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
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*File, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// 🎯 Load reads, parses and validates the config file at path. Relative
// contexts are resolved against the directory of the file.
func Load(ctx context.Context, path string) (*File, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	file, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("resolving config path: %w", err)
	}
	file.location = abs

	// editor workspace configs live one level below the project root
	baseDir := filepath.Dir(abs)
	if filepath.Base(baseDir) == ".vscode" {
		baseDir = filepath.Dir(baseDir)
	}

	if err := file.Validate(baseDir); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	logger.Debug().Strs("hosts", file.Names()).Msg("configuration loaded")

	return file, nil
}

// 🔍 Candidates are the file names Discover looks for, in order
var Candidates = []string{
	".syncrc.yaml",
	".syncrc.yml",
	".syncrc.json",
	".syncrc.hcl",
	".syncrc.toml",
	filepath.Join(".vscode", "sftp.json"),
}

// Discover returns the first config candidate found in dir or one of its parents
func Discover(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Errorf("resolving %s: %w", dir, err)
	}

	for cur := abs; ; cur = filepath.Dir(cur) {
		for _, name := range Candidates {
			candidate := filepath.Join(cur, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		if filepath.Dir(cur) == cur {
			break
		}
	}

	return "", errors.Errorf("no config file found in %s or its parents, looked for %s", abs, strings.Join(Candidates, ", "))
}
