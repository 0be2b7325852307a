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
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrNotRegistered is returned by Resolve for contracts without a
	// registration.
	ErrNotRegistered = errors.New("slogcall: contract not registered")
	// ErrDuplicateRegistration is returned when a contract is registered twice.
	ErrDuplicateRegistration = errors.New("slogcall: contract already registered")
	// ErrNilImplementation is returned when a factory yields no implementation.
	ErrNilImplementation = errors.New("slogcall: nil implementation")
)

// Lifetime controls how often a registered wrapper is built.
type Lifetime int

const (
	// Singleton builds the implementation and its wrapper once.
	Singleton Lifetime = iota
	// Transient builds a fresh implementation and wrapper per Resolve.
	Transient
)

// String returns the lifetime name.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	default:
		return fmt.Sprintf("Lifetime(%d)", int(l))
	}
}

// Registry is an explicit list of intercepted contracts. Each entry pairs a
// contract with an implementation factory and the wrapper that routes its
// calls through the registry's Interceptor.
type Registry struct {
	ic *Interceptor

	mu      sync.Mutex
	entries map[reflect.Type]*registration
	order   []reflect.Type
}

type registration struct {
	contract reflect.Type
	lifetime Lifetime
	build    func() (any, error)

	once     sync.Once
	instance any
	err      error
}

// Attacher contributes registrations. Applications list their attachers
// explicitly and pass them to Registry.Attach.
type Attacher interface {
	Attach(r *Registry) error
}

// AttacherFunc adapts a function to Attacher.
type AttacherFunc func(r *Registry) error

// Attach implements Attacher.
func (f AttacherFunc) Attach(r *Registry) error {
	return f(r)
}

// RegisterOption adjusts a single registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	severity   *Severity
	targetName string
}

// WithSeverity attaches a severity to the registered contract, overriding the
// interceptor's default for its calls.
func WithSeverity(s Severity) RegisterOption {
	return func(o *registerOptions) {
		o.severity = &s
	}
}

// WithTargetName overrides the implementation type name used as the record
// label.
func WithTargetName(name string) RegisterOption {
	return func(o *registerOptions) {
		o.targetName = name
	}
}

// NewRegistry returns an empty registry whose wrappers log through ic.
func NewRegistry(ic *Interceptor) *Registry {
	return &Registry{ic: ic, entries: map[reflect.Type]*registration{}}
}

// Interceptor returns the registry's interceptor.
func (r *Registry) Interceptor() *Interceptor {
	return r.ic
}

// Attach applies attachers in order and stops at the first error.
func (r *Registry) Attach(attachers ...Attacher) error {
	for _, a := range attachers {
		if a == nil {
			continue
		}
		if err := a.Attach(r); err != nil {
			return err
		}
	}
	return nil
}

// Contracts returns the registered contract types in registration order.
func (r *Registry) Contracts() []reflect.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reflect.Type(nil), r.order...)
}

// Register adds contract C to r. newImpl builds the real implementation and
// wrap decorates it with a wrapper bound to the registry's interceptor.
func Register[C any](r *Registry, lifetime Lifetime, newImpl func() (C, error), wrap func(impl C, t *Target) C, opts ...RegisterOption) error {
	contract := reflect.TypeFor[C]()
	if newImpl == nil || wrap == nil {
		return fmt.Errorf("slogcall: register %s: nil factory", contract)
	}
	if lifetime != Singleton && lifetime != Transient {
		return fmt.Errorf("slogcall: register %s: unknown %s", contract, lifetime)
	}

	ro := &registerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(ro)
		}
	}
	if ro.severity != nil {
		if err := r.ic.resolver.Set(contract, *ro.severity); err != nil {
			return fmt.Errorf("slogcall: register %s: %w", contract, err)
		}
	}

	build := func() (any, error) {
		impl, err := newImpl()
		if err != nil {
			return nil, fmt.Errorf("slogcall: build %s: %w", contract, err)
		}
		if isAbsent(any(impl)) {
			return nil, fmt.Errorf("%w: %s", ErrNilImplementation, contract)
		}
		t := Bind[C](r.ic, impl)
		if ro.targetName != "" {
			t = t.Named(ro.targetName)
		}
		return wrap(impl, t), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[contract]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, contract)
	}
	r.entries[contract] = &registration{contract: contract, lifetime: lifetime, build: build}
	r.order = append(r.order, contract)
	return nil
}

// Resolve returns the wrapper registered for contract C.
func Resolve[C any](r *Registry) (C, error) {
	var zero C
	contract := reflect.TypeFor[C]()

	r.mu.Lock()
	reg, ok := r.entries[contract]
	r.mu.Unlock()
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotRegistered, contract)
	}

	instance, err := reg.get()
	if err != nil {
		return zero, err
	}
	wrapped, ok := instance.(C)
	if !ok {
		return zero, fmt.Errorf("slogcall: resolve %s: wrapper has type %T", contract, instance)
	}
	return wrapped, nil
}

// MustResolve is like Resolve but panics on error. It is intended for
// program initialization.
func MustResolve[C any](r *Registry) C {
	c, err := Resolve[C](r)
	if err != nil {
		panic(err)
	}
	return c
}

// get returns the instance according to the registration's lifetime.
func (reg *registration) get() (any, error) {
	if reg.lifetime == Transient {
		return reg.build()
	}
	reg.once.Do(func() {
		reg.instance, reg.err = reg.build()
	})
	return reg.instance, reg.err
}
