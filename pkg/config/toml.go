package config

import (
	"context"
	"strings"

	"github.com/BurntSushi/toml"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&TOMLParser{})
}

// 🔧 TOMLParser implements the Parser interface for TOML files
type TOMLParser struct{}

func (p *TOMLParser) CanParse(filename string) bool {
	return hasExt(filename, ".toml")
}

func (p *TOMLParser) Parse(ctx context.Context, data []byte) (*File, error) {
	var file File
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, errors.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.Errorf("parsing TOML: unknown keys: %s", strings.Join(keys, ", "))
	}
	return &file, nil
}
