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

package slogcall

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
)

// SeverityResolver maps intercepted contracts to the severity their calls
// are logged at. Entries are keyed by the exact contract type, with a
// name-keyed table for configuration files. Lookups never block: writers
// publish a new snapshot atomically.
type SeverityResolver struct {
	defaultSeverity Severity

	mu    sync.Mutex // serializes writers
	table atomic.Pointer[severityTable]
}

type severityTable struct {
	byType map[reflect.Type]Severity
	byName map[string]Severity
}

// NewSeverityResolver returns a resolver that falls back to def for
// contracts without an entry. An unsupported def is replaced by
// SeverityInformation.
func NewSeverityResolver(def Severity) *SeverityResolver {
	if !def.Valid() {
		def = SeverityInformation
	}
	r := &SeverityResolver{defaultSeverity: def}
	r.table.Store(&severityTable{
		byType: map[reflect.Type]Severity{},
		byName: map[string]Severity{},
	})
	return r
}

// Default returns the fallback severity.
func (r *SeverityResolver) Default() Severity {
	return r.defaultSeverity
}

// Set attaches s to the contract type. It is the programmatic form of the
// per-contract severity marker.
func (r *SeverityResolver) Set(contract reflect.Type, s Severity) error {
	if contract == nil {
		return fmt.Errorf("slogcall: set severity: nil contract type")
	}
	if err := validateSeverity(s); err != nil {
		return err
	}
	r.update(func(t *severityTable) {
		t.byType[contract] = s
	})
	return nil
}

// SetByName attaches s to contracts whose qualified name
// ("example.com/pkg.Contract"), package-qualified name ("pkg.Contract") or
// bare name ("Contract") equals name.
func (r *SeverityResolver) SetByName(name string, s Severity) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("slogcall: set severity: empty contract name")
	}
	if err := validateSeverity(s); err != nil {
		return err
	}
	r.update(func(t *severityTable) {
		t.byName[name] = s
	})
	return nil
}

// ReplaceNames swaps the whole name-keyed table, leaving type entries in
// place. It is used when configuration is reloaded.
func (r *SeverityResolver) ReplaceNames(entries map[string]Severity) error {
	next := make(map[string]Severity, len(entries))
	for name, s := range entries {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("slogcall: replace severities: empty contract name")
		}
		if err := validateSeverity(s); err != nil {
			return fmt.Errorf("slogcall: replace severities: contract %q: %w", name, err)
		}
		next[name] = s
	}
	r.update(func(t *severityTable) {
		t.byName = next
	})
	return nil
}

// Resolve returns the severity for calls against contract.
func (r *SeverityResolver) Resolve(contract reflect.Type) Severity {
	if contract == nil {
		return r.defaultSeverity
	}
	t := r.table.Load()
	if s, ok := t.byType[contract]; ok {
		return s
	}
	if s, ok := t.lookupNames(contractNames(contract)...); ok {
		return s
	}
	return r.defaultSeverity
}

// ResolveName returns the severity for a contract known only by name, such
// as a gRPC service.
func (r *SeverityResolver) ResolveName(name string) Severity {
	if s, ok := r.table.Load().lookupNames(name); ok {
		return s
	}
	return r.defaultSeverity
}

// update copies the current table, applies fn and publishes the copy.
func (r *SeverityResolver) update(fn func(*severityTable)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.table.Load()
	next := &severityTable{
		byType: maps.Clone(cur.byType),
		byName: maps.Clone(cur.byName),
	}
	fn(next)
	r.table.Store(next)
}

// lookupNames returns the first entry matching one of names.
func (t *severityTable) lookupNames(names ...string) (Severity, bool) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if s, ok := t.byName[name]; ok {
			return s, true
		}
	}
	return 0, false
}

// ContractName returns the fully qualified name of a contract type, for
// example "github.com/acme/shop/orders.Service".
func ContractName(contract reflect.Type) string {
	if contract == nil {
		return ""
	}
	if contract.PkgPath() == "" {
		return contract.String()
	}
	return contract.PkgPath() + "." + contract.Name()
}

// contractNames lists the names a contract may be configured under, most
// specific first.
func contractNames(contract reflect.Type) []string {
	return []string{ContractName(contract), contract.String(), contract.Name()}
}
