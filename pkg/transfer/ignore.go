package transfer

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// 🙈 Ignore matches slash separated paths against doublestar patterns. A
// pattern without a slash matches the base name at any depth; other patterns
// match the whole path.
//
// Patterns are anchored at the local context of a config. Operations on a
// subpath of the context use Within so entries are matched by their context
// relative path.
type Ignore struct {
	patterns []string
	prefix   string

	// inherited is the pattern that ignores prefix or one of its ancestors
	inherited string
}

// NewIgnore validates and compiles patterns. A nil *Ignore matches nothing.
func NewIgnore(patterns ...string) (*Ignore, error) {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.TrimPrefix(p, "/")
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid ignore pattern %q", p)
		}
		cleaned = append(cleaned, p)
	}
	return &Ignore{patterns: cleaned}, nil
}

// Within returns a copy of i for an operation rooted at prefix, a slash
// separated path relative to the directory the patterns are anchored at.
// An empty prefix or "." roots the copy at that directory.
func (i *Ignore) Within(prefix string) *Ignore {
	if i == nil {
		return nil
	}
	prefix = strings.Trim(path.Clean("/"+prefix), "/")
	scoped := &Ignore{patterns: i.patterns, prefix: prefix}
	for p := prefix; p != ""; p = parentRel(p) {
		if pattern, ok := i.match(p); ok {
			scoped.inherited = pattern
		}
	}
	return scoped
}

// Match reports whether rel, relative to the operation root, is ignored and
// by which pattern. Match("") reports whether the root itself is ignored,
// which is only known for a copy made by Within.
func (i *Ignore) Match(rel string) (string, bool) {
	if i == nil {
		return "", false
	}
	if i.inherited != "" {
		return i.inherited, true
	}
	if rel == "." {
		rel = ""
	}
	subject := rel
	if i.prefix != "" {
		subject = path.Join(i.prefix, rel)
	}
	return i.match(subject)
}

// MatchRoot reports whether a single file operation on root is ignored.
// Without a prefix the base name of root stands for its relative path.
func (i *Ignore) MatchRoot(root string) (string, bool) {
	if i == nil {
		return "", false
	}
	if i.prefix == "" {
		return i.Match(path.Base(root))
	}
	return i.Match("")
}

func (i *Ignore) match(subject string) (string, bool) {
	if subject == "" {
		return "", false
	}
	base := path.Base(subject)
	for _, pattern := range i.patterns {
		candidate := subject
		if !strings.Contains(pattern, "/") {
			candidate = base
		}
		if matched, _ := doublestar.Match(pattern, candidate); matched {
			return pattern, true
		}
	}
	return "", false
}

// Patterns returns the compiled patterns
func (i *Ignore) Patterns() []string {
	if i == nil {
		return nil
	}
	return append([]string(nil), i.patterns...)
}
