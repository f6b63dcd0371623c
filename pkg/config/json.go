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
	"bytes"
	"context"
	"encoding/json"

	"gitlab.com/tozd/go/errors"
)

// 🔧 JSONParser implements the Parser interface for JSON files
type JSONParser struct{}

func init() {
	Register(&JSONParser{})
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *JSONParser) CanParse(filename string) bool {
	return hasExt(filename, ".json")
}

// 📝 Parse parses the config from JSON bytes. Accepted shapes are an object
// with a "hosts" key, a bare array of hosts and a single host object.
func (p *JSONParser) Parse(ctx context.Context, data []byte) (*File, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var hosts []Config
		if err := decodeStrict(trimmed, &hosts); err != nil {
			return nil, err
		}
		return &File{Hosts: hosts}, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}

	if _, ok := keys["hosts"]; !ok {
		var host Config
		if err := decodeStrict(trimmed, &host); err != nil {
			return nil, err
		}
		return &File{Hosts: []Config{host}}, nil
	}

	var file File
	if err := decodeStrict(trimmed, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func decodeStrict(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.Errorf("parsing JSON: %w", err)
	}
	return nil
}
