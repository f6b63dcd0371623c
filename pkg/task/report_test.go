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

package task

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/walteh/syncrc/pkg/transfer"
	"gitlab.com/tozd/go/errors"
)

func TestClassify(t *testing.T) {
	var nilFailure *transfer.Failure
	in := []transfer.Result{
		transfer.Success{Path: "a", Operation: transfer.OpTransfer},
		nil,
		transfer.Ignored{Path: "b", Operation: transfer.OpTransfer},
		&transfer.Failure{Path: "c", Operation: transfer.OpTransfer, Err: errors.New("x")},
		nilFailure,
		&transfer.Success{Path: "d", Operation: transfer.OpRemove},
	}

	out := Classify(in)

	assert.Len(t, out.Success, 2)
	assert.Len(t, out.Ignored, 1)
	assert.Len(t, out.Fails, 1)
	assert.Equal(t, 4, len(out.Success)+len(out.Ignored)+len(out.Fails), "every structured entry lands in exactly one bucket")
	assert.Equal(t, "c", out.Fails[0].Target())

	assert.Equal(t, Outcome{}, Classify(nil), "empty input gives empty outcome")
}

func TestReport(t *testing.T) {
	diskFull := stderrors.New("disk full")

	tests := []struct {
		name       string
		results    []transfer.Result
		silent     bool
		wantDebugs int
		wantStatus []any // text, duration; nil means no status call
		wantFocus  int
		check      func(t *testing.T, debugs []string)
	}{
		{
			name: "only_ignored",
			results: []transfer.Result{
				transfer.Ignored{Path: "x"},
				transfer.Ignored{Path: "y"},
				transfer.Ignored{Path: "z"},
			},
			wantDebugs: 3,
			check: func(t *testing.T, debugs []string) {
				assert.Equal(t, []string{"\nignore: x", "\nignore: y", "\nignore: z"}, debugs)
			},
		},
		{
			name:       "empty",
			results:    nil,
			wantDebugs: 0,
		},
		{
			name: "mixed_upload",
			results: []transfer.Result{
				transfer.Success{Path: "a", Operation: "upload"},
				transfer.Ignored{Path: "b", Operation: "upload"},
				transfer.Failure{Path: "c", Operation: "upload", Err: diskFull},
			},
			wantDebugs: 3,
			wantStatus: []any{"upload done (1 fails)", StatusDuration},
			wantFocus:  1,
			check: func(t *testing.T, debugs []string) {
				assert.Equal(t, "\nignore: b", debugs[0])
				assert.True(t, strings.HasPrefix(debugs[1], "upload a at "), "success trace should name op and target")
				assert.Equal(t, "\n------\ntarget: c\ncontext: upload\nerror: disk full\n------", debugs[2])
			},
		},
		{
			name: "silent_success",
			results: []transfer.Result{
				transfer.Success{Path: "a", Operation: "upload"},
			},
			silent:     true,
			wantDebugs: 1,
			wantStatus: []any{"", time.Duration(0)},
		},
		{
			name: "loud_success",
			results: []transfer.Result{
				transfer.Success{Path: "a", Operation: "upload"},
			},
			wantDebugs: 1,
			wantStatus: []any{"upload done", StatusDuration},
		},
		{
			name: "silent_does_not_hide_failures",
			results: []transfer.Result{
				transfer.Failure{Path: "a", Operation: "upload", Err: diskFull},
				transfer.Failure{Path: "b", Operation: "upload", Err: diskFull},
			},
			silent:     true,
			wantDebugs: 2,
			wantStatus: []any{"upload done (2 fails)", StatusDuration},
			wantFocus:  1,
		},
		{
			name: "stack_trace_is_preferred",
			results: []transfer.Result{
				transfer.Failure{Path: "a", Operation: "upload", Err: errors.New("with stack")},
			},
			wantDebugs: 1,
			wantStatus: []any{"upload done (1 fails)", StatusDuration},
			wantFocus:  1,
			check: func(t *testing.T, debugs []string) {
				assert.Contains(t, debugs[0], "error: with stack")
				assert.Contains(t, debugs[0], "report_test.go", "stack trace should be rendered")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := newMockReporter()

			assert.NotPanics(t, func() {
				Report(rep, "upload", tt.results, tt.silent)
			})

			debugs := rep.debugs()
			assert.Len(t, debugs, tt.wantDebugs, "debug trace count should match")
			rep.AssertNumberOfCalls(t, "FocusDiagnostics", tt.wantFocus)

			if tt.wantStatus == nil {
				rep.AssertNotCalled(t, "Status", mock.Anything, mock.Anything)
			} else {
				rep.AssertNumberOfCalls(t, "Status", 1)
				rep.AssertCalled(t, "Status", tt.wantStatus...)
			}

			if tt.check != nil {
				tt.check(t, debugs)
			}
		})
	}
}
