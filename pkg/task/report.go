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
	"fmt"
	"strings"
	"time"

	"github.com/walteh/syncrc/pkg/transfer"
	"gitlab.com/tozd/go/errors"
)

// StatusDuration is how long a summary status stays visible
const StatusDuration = 2 * time.Second

// 📊 Outcome partitions the results of one task run
type Outcome struct {
	Success []transfer.Success
	Fails   []transfer.Failure
	Ignored []transfer.Ignored
}

// Classify sorts results into disjoint buckets, dropping nil entries
func Classify(results []transfer.Result) Outcome {
	var out Outcome
	for _, r := range results {
		switch v := r.(type) {
		case transfer.Failure:
			out.Fails = append(out.Fails, v)
		case *transfer.Failure:
			if v != nil {
				out.Fails = append(out.Fails, *v)
			}
		case transfer.Ignored:
			out.Ignored = append(out.Ignored, v)
		case *transfer.Ignored:
			if v != nil {
				out.Ignored = append(out.Ignored, *v)
			}
		case transfer.Success:
			out.Success = append(out.Success, v)
		case *transfer.Success:
			if v != nil {
				out.Success = append(out.Success, *v)
			}
		}
	}
	return out
}

type stackTracer interface {
	StackTrace() []uintptr
}

// 📝 Report traces every result and shows one summary status for label
func Report(reporter Reporter, label string, results []transfer.Result, silent bool) {
	outcome := Classify(results)

	for _, ig := range outcome.Ignored {
		reporter.Debug("\nignore: " + ig.Target())
	}

	if len(outcome.Success)+len(outcome.Fails) == 0 {
		return
	}

	for _, s := range outcome.Success {
		reporter.Debug(fmt.Sprintf("%s %s at %s", s.Op(), s.Target(), time.Now().Format(time.RFC1123)))
	}

	if len(outcome.Fails) > 0 {
		for _, f := range outcome.Fails {
			reporter.Debug(failureBlock(f))
		}
		reporter.FocusDiagnostics()
		reporter.Status(fmt.Sprintf("%s done (%d fails)", label, len(outcome.Fails)), StatusDuration)
		return
	}

	if silent {
		reporter.Status("", 0)
		return
	}
	reporter.Status(label+" done", StatusDuration)
}

func failureBlock(f transfer.Failure) string {
	msg := "<nil>"
	if f.Err != nil {
		msg = f.Err.Error()
		var st stackTracer
		if errors.As(f.Err, &st) {
			msg = fmt.Sprintf("%+v", f.Err)
		}
	}
	return strings.Join([]string{
		"",
		"------",
		"target: " + f.Target(),
		"context: " + string(f.Op()),
		"error: " + msg,
		"------",
	}, "\n")
}
