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

package transfer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/syncrc/pkg/vfs"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

// writeTree creates files below root, keys are slash separated
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

// summarize maps results to "kind:path relative to root"
func summarize(t *testing.T, root string, results []Result) []string {
	t.Helper()
	out := make([]string, 0, len(results))
	for _, r := range results {
		rel, err := filepath.Rel(root, r.Target())
		require.NoError(t, err)
		kind := ""
		switch r.(type) {
		case Success:
			kind = "ok"
		case Ignored:
			kind = "ignored"
		case Failure:
			kind = "fail"
		}
		out = append(out, kind+":"+string(r.Op())+":"+filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

// failingOpen fails to open any file whose base name is in names
type failingOpen struct {
	*vfs.Local
	names map[string]bool
}

func (f *failingOpen) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if f.names[filepath.Base(name)] {
		return nil, errors.New("permission denied")
	}
	return f.Local.Open(ctx, name)
}

func TestIgnoreMatch(t *testing.T) {
	ignore, err := NewIgnore("*.log", "node_modules", "/build/**", " ", "docs/*.md")
	require.NoError(t, err)

	tests := []struct {
		rel         string
		wantPattern string
		wantMatch   bool
	}{
		{rel: "app.log", wantPattern: "*.log", wantMatch: true},
		{rel: "deep/nested/app.log", wantPattern: "*.log", wantMatch: true},
		{rel: "node_modules", wantPattern: "node_modules", wantMatch: true},
		{rel: "pkg/node_modules", wantPattern: "node_modules", wantMatch: true},
		{rel: "build/out/bin", wantPattern: "build/**", wantMatch: true},
		{rel: "docs/readme.md", wantPattern: "docs/*.md", wantMatch: true},
		{rel: "docs/api/readme.md"},
		{rel: "src/main.go"},
		{rel: ""},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			pattern, ok := ignore.Match(tt.rel)
			assert.Equal(t, tt.wantMatch, ok, "match should be as expected")
			assert.Equal(t, tt.wantPattern, pattern, "pattern should be reported")
		})
	}

	assert.Equal(t, []string{"*.log", "node_modules", "build/**", "docs/*.md"}, ignore.Patterns(), "blank patterns should be dropped")

	var none *Ignore
	_, ok := none.Match("anything")
	assert.False(t, ok, "nil ignore matches nothing")

	_, err = NewIgnore("[abc")
	require.Error(t, err, "invalid pattern should be rejected")
}

func TestTransport(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		ignore []string
		broken map[string]bool
		want   []string
		check  func(t *testing.T, dst string)
	}{
		{
			name: "tree_with_ignore",
			files: map[string]string{
				"index.html":          "<html/>",
				"css/site.css":        "body{}",
				"css/debug.log":       "noise",
				"node_modules/x/a.js": "x",
			},
			ignore: []string{"*.log", "node_modules"},
			want: []string{
				"ignored:transfer:css/debug.log",
				"ignored:transfer:node_modules",
				"ok:transfer:css/site.css",
				"ok:transfer:index.html",
			},
			check: func(t *testing.T, dst string) {
				assert.FileExists(t, filepath.Join(dst, "index.html"))
				assert.FileExists(t, filepath.Join(dst, "css", "site.css"))
				assert.NoFileExists(t, filepath.Join(dst, "css", "debug.log"))
				assert.NoDirExists(t, filepath.Join(dst, "node_modules"))
			},
		},
		{
			name:   "per_file_failure_does_not_stop_others",
			files:  map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"},
			broken: map[string]bool{"b.txt": true},
			want: []string{
				"fail:transfer:b.txt",
				"ok:transfer:a.txt",
				"ok:transfer:c.txt",
			},
			check: func(t *testing.T, dst string) {
				assert.FileExists(t, filepath.Join(dst, "a.txt"))
				assert.NoFileExists(t, filepath.Join(dst, "b.txt"))
			},
		},
		{
			name:  "empty_directories_are_created",
			files: map[string]string{"keep/file": "x"},
			want:  []string{"ok:transfer:keep/file"},
			check: func(t *testing.T, dst string) {
				assert.DirExists(t, filepath.Join(dst, "keep"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			src := t.TempDir()
			dst := filepath.Join(t.TempDir(), "out")
			writeTree(t, src, tt.files)

			ignore, err := NewIgnore(tt.ignore...)
			require.NoError(t, err)

			srcFs := &failingOpen{Local: vfs.NewLocal(), names: tt.broken}
			results, err := NewEngine(2).Transport(ctx, src, dst, srcFs, vfs.NewLocal(), TransportOptions{Ignore: ignore})
			require.NoError(t, err, "transport should not fail as a whole")

			assert.Equal(t, tt.want, summarize(t, src, results), "results should match")
			if tt.check != nil {
				tt.check(t, dst)
			}
		})
	}
}

func TestTransportSingleFile(t *testing.T) {
	ctx := testContext(t)
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "hello"})

	results, err := NewEngine(1).Transport(ctx, filepath.Join(src, "a.txt"), filepath.Join(dst, "a.txt"), vfs.NewLocal(), vfs.NewLocal(), TransportOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.IsType(t, Success{}, results[0])

	content, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestTransportMissingSource(t *testing.T) {
	ctx := testContext(t)
	_, err := NewEngine(1).Transport(ctx, filepath.Join(t.TempDir(), "nope"), t.TempDir(), vfs.NewLocal(), vfs.NewLocal(), TransportOptions{})
	require.Error(t, err, "missing source should fail the whole operation")
	assert.True(t, vfs.IsNotExist(err), "cause should be preserved")
}

func TestTransportPreserveTargetMode(t *testing.T) {
	tests := []struct {
		name     string
		preserve bool
		srcMode  os.FileMode
		wantMode os.FileMode
	}{
		{name: "preserved", preserve: true, wantMode: 0600},
		{name: "replaced", preserve: false, wantMode: 0644},
		{name: "source_mode_carried", preserve: false, srcMode: 0755, wantMode: 0755},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			src := filepath.Join(t.TempDir(), "script.sh")
			dst := filepath.Join(t.TempDir(), "script.sh")
			srcMode := tt.srcMode
			if srcMode == 0 {
				srcMode = 0644
			}
			require.NoError(t, os.WriteFile(src, []byte("new"), srcMode))
			require.NoError(t, os.Chmod(src, srcMode))
			require.NoError(t, os.WriteFile(dst, []byte("old"), 0600))
			require.NoError(t, os.Chmod(dst, 0600))

			_, err := NewEngine(1).Transport(ctx, src, dst, vfs.NewLocal(), vfs.NewLocal(), TransportOptions{PreserveTargetMode: tt.preserve})
			require.NoError(t, err)

			info, err := os.Stat(dst)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, info.Mode().Perm(), "target mode should match")
		})
	}
}

func TestTransportNewTargetKeepsSourceMode(t *testing.T) {
	ctx := testContext(t)
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"bin/run.sh": "#!/bin/sh", "README": "hi"})
	require.NoError(t, os.Chmod(filepath.Join(src, "bin", "run.sh"), 0755))

	_, err := NewEngine(2).Transport(ctx, src, dst, vfs.NewLocal(), vfs.NewLocal(), TransportOptions{})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dst, "bin", "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm(), "executable bit should survive the copy")

	info, err = os.Stat(filepath.Join(dst, "README"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestTransportOpLabel(t *testing.T) {
	ctx := testContext(t)
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a", "skip.log": "x"})

	results, err := NewEngine(1).Transport(ctx, src, t.TempDir(), vfs.NewLocal(), vfs.NewLocal(), TransportOptions{
		Ignore: mustIgnore(t, "*.log"),
		Op:     OpUpload,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ignored:upload:skip.log", "ok:upload:a.txt"}, summarize(t, src, results), "results should carry the requested op")

	dst := t.TempDir()
	results, err = NewEngine(1).Sync(ctx, src, dst, vfs.NewLocal(), vfs.NewLocal(), SyncOptions{Model: ModelUpdate, Op: OpDownload})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok:download:a.txt", "ok:download:skip.log"}, summarize(t, src, results))
}

func mustIgnore(t *testing.T, patterns ...string) *Ignore {
	t.Helper()
	ignore, err := NewIgnore(patterns...)
	require.NoError(t, err)
	return ignore
}

func TestIgnoreWithin(t *testing.T) {
	ignore := mustIgnore(t, "build/**", "sub/secret.txt", "node_modules", "*.log")

	tests := []struct {
		name        string
		prefix      string
		rel         string
		wantPattern string
		wantMatch   bool
	}{
		{name: "root_prefix", prefix: "", rel: "build/out.bin", wantPattern: "build/**", wantMatch: true},
		{name: "dot_prefix", prefix: ".", rel: "sub/secret.txt", wantPattern: "sub/secret.txt", wantMatch: true},
		{name: "child_of_scoped_dir", prefix: "sub", rel: "secret.txt", wantPattern: "sub/secret.txt", wantMatch: true},
		{name: "sibling_in_scoped_dir", prefix: "sub", rel: "public.txt"},
		{name: "scoped_file_itself", prefix: "build/out.bin", rel: "", wantPattern: "build/**", wantMatch: true},
		{name: "scoped_ignored_dir", prefix: "web/node_modules", rel: "", wantPattern: "node_modules", wantMatch: true},
		{name: "inside_ignored_ancestor", prefix: "web/node_modules/pkg", rel: "index.js", wantPattern: "node_modules", wantMatch: true},
		{name: "basename_rule_under_prefix", prefix: "src", rel: "deep/app.log", wantPattern: "*.log", wantMatch: true},
		{name: "unrelated_prefix", prefix: "src", rel: "main.go"},
		{name: "unscoped_root", prefix: "", rel: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern, ok := ignore.Within(tt.prefix).Match(tt.rel)
			assert.Equal(t, tt.wantMatch, ok, "match should be as expected")
			assert.Equal(t, tt.wantPattern, pattern, "pattern should be reported")
		})
	}

	var none *Ignore
	_, ok := none.Within("sub").Match("secret.txt")
	assert.False(t, ok, "nil ignore matches nothing")
}

func TestIgnoreMatchRoot(t *testing.T) {
	ignore := mustIgnore(t, "sub/secret.txt", "*.log")

	_, ok := ignore.MatchRoot("/any/where/app.log")
	assert.True(t, ok, "unscoped roots fall back to the base name")

	_, ok = ignore.MatchRoot("/ctx/sub/secret.txt")
	assert.False(t, ok, "unscoped roots cannot match path patterns")

	pattern, ok := ignore.Within("sub/secret.txt").MatchRoot("/ctx/sub/secret.txt")
	assert.True(t, ok, "scoped roots match by context relative path")
	assert.Equal(t, "sub/secret.txt", pattern)
}

func TestScopedOperationsHonorIgnore(t *testing.T) {
	ctx := testContext(t)
	ignore := mustIgnore(t, "build/**", "sub/secret.txt", "node_modules")

	local := t.TempDir()
	writeTree(t, local, map[string]string{
		"build/out.bin":                "bin",
		"sub/secret.txt":               "secret",
		"sub/public.txt":               "public",
		"web/node_modules/pkg/main.js": "js",
	})
	remote := t.TempDir()
	writeTree(t, remote, map[string]string{
		"build/out.bin":  "bin",
		"sub/secret.txt": "secret",
		"sub/public.txt": "public",
	})

	e := NewEngine(2)
	lfs := vfs.NewLocal()

	t.Run("transport_ignored_file", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "build", "out.bin")
		results, err := e.Transport(ctx, filepath.Join(local, "build", "out.bin"), dst, lfs, lfs, TransportOptions{Ignore: ignore.Within("build/out.bin")})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.IsType(t, Ignored{}, results[0])
		assert.NoFileExists(t, dst)
	})

	t.Run("transport_ignored_dir_root", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "web", "node_modules")
		results, err := e.Transport(ctx, filepath.Join(local, "web", "node_modules"), dst, lfs, lfs, TransportOptions{Ignore: ignore.Within("web/node_modules")})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.IsType(t, Ignored{}, results[0])
		assert.NoDirExists(t, dst)
	})

	t.Run("sync_scoped_dir", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "sub")
		results, err := e.Sync(ctx, filepath.Join(local, "sub"), dst, lfs, lfs, SyncOptions{Ignore: ignore.Within("sub"), Model: ModelUpdate})
		require.NoError(t, err)
		assert.Equal(t, []string{"ignored:transfer:sub/secret.txt", "ok:transfer:sub/public.txt"}, summarize(t, local, results))
		assert.FileExists(t, filepath.Join(dst, "public.txt"))
		assert.NoFileExists(t, filepath.Join(dst, "secret.txt"))
	})

	t.Run("remove_scoped_dir", func(t *testing.T) {
		results, err := e.Remove(ctx, filepath.Join(remote, "sub"), lfs, RemoveOptions{Ignore: ignore.Within("sub")})
		require.NoError(t, err)
		assert.Equal(t, []string{"ignored:remove:sub/secret.txt", "ok:remove:sub/public.txt"}, summarize(t, remote, results))
		assert.FileExists(t, filepath.Join(remote, "sub", "secret.txt"), "ignored remote file must survive")
	})

	t.Run("remove_scoped_file", func(t *testing.T) {
		results, err := e.Remove(ctx, filepath.Join(remote, "build", "out.bin"), lfs, RemoveOptions{Ignore: ignore.Within("build/out.bin")})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.IsType(t, Ignored{}, results[0])
		assert.FileExists(t, filepath.Join(remote, "build", "out.bin"))
	})
}

func TestSync(t *testing.T) {
	ctx := testContext(t)
	src := t.TempDir()
	dst := t.TempDir()
	engine := NewEngine(4)

	writeTree(t, src, map[string]string{"a.txt": "a", "dir/b.txt": "b"})

	results, err := engine.Sync(ctx, src, dst, vfs.NewLocal(), vfs.NewLocal(), SyncOptions{Model: ModelUpdate})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok:transfer:a.txt", "ok:transfer:dir/b.txt"}, summarize(t, src, results), "first sync copies everything")

	results, err = engine.Sync(ctx, src, dst, vfs.NewLocal(), vfs.NewLocal(), SyncOptions{Model: ModelUpdate})
	require.NoError(t, err)
	assert.Empty(t, results, "unchanged tree should produce no results")

	writeTree(t, src, map[string]string{"a.txt": "changed"})
	writeTree(t, dst, map[string]string{"extra.txt": "x", "old/c.txt": "c"})

	results, err = engine.Sync(ctx, src, dst, vfs.NewLocal(), vfs.NewLocal(), SyncOptions{Model: ModelUpdate})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok:transfer:a.txt"}, summarize(t, src, results), "update copies changed files only")
	assert.FileExists(t, filepath.Join(dst, "extra.txt"), "update never deletes")

	results, err = engine.Sync(ctx, src, dst, vfs.NewLocal(), vfs.NewLocal(), SyncOptions{Model: ModelFull})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok:remove:extra.txt", "ok:remove:old", "ok:remove:old/c.txt"}, summarize(t, dst, results), "full prunes extra entries")
	assert.NoFileExists(t, filepath.Join(dst, "extra.txt"))
	assert.NoDirExists(t, filepath.Join(dst, "old"))
	assert.FileExists(t, filepath.Join(dst, "dir", "b.txt"))
}

func TestSyncFullKeepsIgnoredTargets(t *testing.T) {
	ctx := testContext(t)
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})
	writeTree(t, dst, map[string]string{"cache/data.log": "keep me"})

	ignore, err := NewIgnore("*.log")
	require.NoError(t, err)

	_, err = NewEngine(1).Sync(ctx, src, dst, vfs.NewLocal(), vfs.NewLocal(), SyncOptions{Model: ModelFull, Ignore: ignore})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dst, "cache", "data.log"), "ignored target entries survive pruning")
}

func TestSyncUnknownModel(t *testing.T) {
	ctx := testContext(t)
	_, err := NewEngine(1).Sync(ctx, t.TempDir(), t.TempDir(), vfs.NewLocal(), vfs.NewLocal(), SyncOptions{Model: "mirror"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sync model")
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		ignore  []string
		skipDir bool
		want    []string
		check   func(t *testing.T, root string)
	}{
		{
			name:  "whole_tree",
			files: map[string]string{"a.txt": "a", "dir/b.txt": "b", "dir/sub/c.txt": "c"},
			want: []string{
				"ok:remove:.",
				"ok:remove:a.txt",
				"ok:remove:dir",
				"ok:remove:dir/b.txt",
				"ok:remove:dir/sub",
				"ok:remove:dir/sub/c.txt",
			},
			check: func(t *testing.T, root string) {
				assert.NoDirExists(t, root)
			},
		},
		{
			name:   "ignored_file_keeps_its_parents",
			files:  map[string]string{"a.txt": "a", "dir/keep.log": "k", "other/b.txt": "b"},
			ignore: []string{"*.log"},
			want: []string{
				"ignored:remove:dir/keep.log",
				"ok:remove:a.txt",
				"ok:remove:other",
				"ok:remove:other/b.txt",
			},
			check: func(t *testing.T, root string) {
				assert.FileExists(t, filepath.Join(root, "dir", "keep.log"))
				assert.NoDirExists(t, filepath.Join(root, "other"))
			},
		},
		{
			name:    "skip_dir_keeps_directories",
			files:   map[string]string{"a.txt": "a", "dir/b.txt": "b"},
			skipDir: true,
			want:    []string{"ok:remove:a.txt", "ok:remove:dir/b.txt"},
			check: func(t *testing.T, root string) {
				assert.DirExists(t, filepath.Join(root, "dir"))
				assert.NoFileExists(t, filepath.Join(root, "dir", "b.txt"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			root := filepath.Join(t.TempDir(), "remote")
			writeTree(t, root, tt.files)

			ignore, err := NewIgnore(tt.ignore...)
			require.NoError(t, err)

			results, err := NewEngine(2).Remove(ctx, root, vfs.NewLocal(), RemoveOptions{Ignore: ignore, SkipDir: tt.skipDir})
			require.NoError(t, err)
			assert.Equal(t, tt.want, summarize(t, root, results), "results should match")
			if tt.check != nil {
				tt.check(t, root)
			}
		})
	}
}

func TestRemoveMissingTarget(t *testing.T) {
	ctx := testContext(t)
	results, err := NewEngine(1).Remove(ctx, filepath.Join(t.TempDir(), "gone"), vfs.NewLocal(), RemoveOptions{})
	require.NoError(t, err, "missing target is not an error")
	assert.Empty(t, results, "missing target has nothing to report")
}

func TestResultFailureWithoutCause(t *testing.T) {
	var err error = Failure{Path: "/x", Operation: OpUpload}
	assert.NotPanics(t, func() {
		assert.Equal(t, "upload /x: unknown error", err.Error())
	})
}

func TestResultFailureUnwraps(t *testing.T) {
	cause := errors.New("boom")
	var err error = Failure{Path: "/x", Operation: OpRemove, Err: cause}
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "remove /x: boom", err.Error())
}
