// Copyright 2025 Patrick J. Scruggs
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

// Package slogcalltest provides test doubles for code that logs through
// slogcall.
package slogcalltest

import (
	"context"
	"sync"

	"github.com/pjscruggs/slogcall"
)

// Entry is one record received by a Recorder.
type Entry struct {
	Severity slogcall.Severity
	Template string
	Values   []any
}

// Placeholders returns the placeholder names of the entry's template.
func (e Entry) Placeholders() []string {
	return slogcall.Placeholders(e.Template)
}

// Value returns the value bound to placeholder name.
func (e Entry) Value(name string) (any, bool) {
	for i, n := range e.Placeholders() {
		if n == name && i < len(e.Values) {
			return e.Values[i], true
		}
	}
	return nil, false
}

// Rendered returns the template with values substituted.
func (e Entry) Rendered() string {
	return slogcall.RenderTemplate(e.Template, e.Values)
}

// Recorder is a slogcall.Sink that keeps every record in memory. It is safe
// for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

var _ slogcall.Sink = (*Recorder)(nil)

// Log implements slogcall.Sink.
func (r *Recorder) Log(_ context.Context, severity slogcall.Severity, template string, values ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{
		Severity: severity,
		Template: template,
		Values:   append([]any(nil), values...),
	})
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of recorded entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Last returns the most recent entry.
func (r *Recorder) Last() (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[len(r.entries)-1], true
}

// Reset discards recorded entries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
