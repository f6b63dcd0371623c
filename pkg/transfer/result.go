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

// 🏷️ Op labels the action a result describes
type Op string

const (
	// OpTransfer labels copies whose direction is not known
	OpTransfer Op = "transfer"
	OpUpload   Op = "upload"
	OpDownload Op = "download"
	OpMkdir    Op = "mkdir"
	OpRemove   Op = "remove"
)

func (o Op) or(fallback Op) Op {
	if o == "" {
		return fallback
	}
	return o
}

// 📄 Result is the outcome for one filesystem entry. It is exactly one of
// Success, Ignored or Failure.
type Result interface {
	Target() string
	Op() Op
	isResult()
}

// ✅ Success means the entry was acted on
type Success struct {
	Path      string
	Operation Op
}

// ⏭️ Ignored means the entry was skipped by an ignore rule
type Ignored struct {
	Path      string
	Operation Op
	Reason    string // matching pattern, if known
}

// ❌ Failure means acting on the entry failed; the rest of the operation
// carried on
type Failure struct {
	Path      string
	Operation Op
	Err       error
}

func (r Success) Target() string { return r.Path }
func (r Success) Op() Op         { return r.Operation }
func (Success) isResult()        {}

func (r Ignored) Target() string { return r.Path }
func (r Ignored) Op() Op         { return r.Operation }
func (Ignored) isResult()        {}

func (r Failure) Target() string { return r.Path }
func (r Failure) Op() Op         { return r.Operation }
func (Failure) isResult()        {}

func (r Failure) Error() string {
	if r.Err == nil {
		return string(r.Operation) + " " + r.Path + ": unknown error"
	}
	return string(r.Operation) + " " + r.Path + ": " + r.Err.Error()
}

func (r Failure) Unwrap() error {
	return r.Err
}
