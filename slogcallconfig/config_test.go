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

package slogcallconfig

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjscruggs/slogcall"
)

type ledger interface{ Post() }

const sample = `
defaultSeverity: debug
failureSeverity: error
failureMode: swallow
maxValueSize: 128
contracts:
  slogcallconfig.ledger: warning
  Billing: none
`

// TestParse decodes every key.
func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.DefaultSeverity)
	assert.Equal(t, "swallow", cfg.FailureMode)
	assert.Equal(t, 128, cfg.MaxValueSize)

	table, err := cfg.Severities()
	require.NoError(t, err)
	assert.Equal(t, map[string]slogcall.Severity{
		"slogcallconfig.ledger": slogcall.SeverityWarning,
		"Billing":               slogcall.SeverityNone,
	}, table)
}

// TestParseEmpty treats an empty document as an unset configuration.
func TestParseEmpty(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("  \n"))
	require.NoError(t, err)
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Empty(t, opts)
}

// TestParseRejectsInvalid reports bad values and unknown keys.
func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"severity":     "defaultSeverity: loud\n",
		"failure mode": "failureMode: explode\n",
		"size":         "maxValueSize: -1\n",
		"contract":     "contracts:\n  Ledger: chatty\n",
		"unknown key":  "verbosity: 3\n",
		"syntax":       "contracts: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("contracts:\n  Ledger: chatty\n"))
	assert.ErrorIs(t, err, slogcall.ErrUnsupportedSeverity)
}

// TestOptionsConfigureInterceptor feeds the file settings to slogcall.New.
func TestOptionsConfigureInterceptor(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 4)

	ic, err := slogcall.New(slogcall.SinkFunc(func(context.Context, slogcall.Severity, string, ...any) {}), opts...)
	require.NoError(t, err)
	assert.Equal(t, slogcall.FailureSwallow, ic.FailureMode())
	assert.Equal(t, slogcall.SeverityDebug, ic.Resolver().Default())
}

// TestApply replaces name-keyed entries and keeps type-keyed ones.
func TestApply(t *testing.T) {
	t.Parallel()

	type audit interface{ Record() }
	auditType := reflect.TypeFor[audit]()
	ledgerType := reflect.TypeFor[ledger]()

	resolver := slogcall.NewSeverityResolver(slogcall.SeverityInformation)
	require.NoError(t, resolver.Set(auditType, slogcall.SeverityError))
	require.NoError(t, resolver.SetByName("Stale", slogcall.SeverityTrace))

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, cfg.Apply(resolver))

	assert.Equal(t, slogcall.SeverityWarning, resolver.Resolve(ledgerType))
	assert.Equal(t, slogcall.SeverityError, resolver.Resolve(auditType))
	assert.Equal(t, slogcall.SeverityNone, resolver.ResolveName("Billing"))
	assert.Equal(t, slogcall.SeverityInformation, resolver.ResolveName("Stale"))

	assert.Error(t, cfg.Apply(nil))
}

// TestLoad reads from disk and names the file in errors.
func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "slogcall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Contracts, 2)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.yaml")
}

// TestWatchReloads applies a rewritten file and keeps the last good table
// when a rewrite is invalid.
func TestWatchReloads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "slogcall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("contracts:\n  Ledger: debug\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver := slogcall.NewSeverityResolver(slogcall.SeverityInformation)
	reloads := make(chan error, 16)
	require.NoError(t, Watch(ctx, path, resolver, nil, func(err error) { reloads <- err }))
	assert.Equal(t, slogcall.SeverityDebug, resolver.ResolveName("Ledger"))

	replaceFile(t, path, "contracts:\n  Ledger: error\n")
	require.Eventually(t, func() bool {
		return resolver.ResolveName("Ledger") == slogcall.SeverityError
	}, 5*time.Second, 10*time.Millisecond)

	replaceFile(t, path, "contracts:\n  Ledger: chatty\n")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-reloads:
			if err == nil {
				continue
			}
			assert.ErrorIs(t, err, slogcall.ErrUnsupportedSeverity)
			assert.Equal(t, slogcall.SeverityError, resolver.ResolveName("Ledger"))
			return
		case <-deadline:
			t.Fatal("no reload after invalid write")
		}
	}
}

// TestWatchInitialLoadError fails fast when the file cannot be applied.
func TestWatchInitialLoadError(t *testing.T) {
	t.Parallel()

	resolver := slogcall.NewSeverityResolver(slogcall.SeverityInformation)
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), resolver, nil, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// replaceFile renames a fully written file over path so the watcher never
// observes a partial document.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}
