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

package result

import (
	"errors"
	"fmt"
)

// ErrUnknownState is returned or raised when an envelope carries a state
// other than Success, DomainError or Fault.
var ErrUnknownState = errors.New("result: unknown envelope state")

// State identifies which branch of a Result is populated.
type State uint8

const (
	// StateUnknown is the state of the zero Result.
	StateUnknown State = iota
	// StateSuccess marks a Result carrying a payload.
	StateSuccess
	// StateDomainError marks a Result carrying validation or business errors.
	StateDomainError
	// StateFault marks a Result carrying collected failure information.
	StateFault
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateSuccess:
		return "Success"
	case StateDomainError:
		return "DomainError"
	case StateFault:
		return "Fault"
	case StateUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ErrorMessage is a single structured domain error.
type ErrorMessage struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ExceptionInfo describes one error in a fault's chain.
type ExceptionInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Envelope is the type-erased view of a Result. Loggers and other
// observers pattern match on it without knowing the payload type.
type Envelope interface {
	// EnvelopeState reports the populated branch.
	EnvelopeState() State
	// EnvelopePayload returns the branch payload: the success value, the
	// []ErrorMessage of a domain error, or the []ExceptionInfo of a fault.
	// It returns nil for StateUnknown.
	EnvelopePayload() any
}

// Result is a tagged container holding exactly one of a success payload,
// a list of domain errors, or a fault.
type Result[T any] struct {
	state  State
	value  T
	errors []ErrorMessage
	fault  error
}

var (
	_ Envelope = Result[int]{}
	_ Envelope = (*Result[int])(nil)
)

// Success returns a Result holding value.
func Success[T any](value T) Result[T] {
	return Result[T]{state: StateSuccess, value: value}
}

// DomainError returns a Result holding the supplied domain errors.
func DomainError[T any](msgs ...ErrorMessage) Result[T] {
	return Result[T]{state: StateDomainError, errors: append([]ErrorMessage(nil), msgs...)}
}

// Fault returns a Result holding err. A nil err yields a fault with an
// empty exception collection.
func Fault[T any](err error) Result[T] {
	return Result[T]{state: StateFault, fault: err}
}

// State reports which branch is populated.
func (r Result[T]) State() State {
	return r.state
}

// IsSuccess reports whether r holds a success payload.
func (r Result[T]) IsSuccess() bool {
	return r.state == StateSuccess
}

// IsDomainError reports whether r holds domain errors.
func (r Result[T]) IsDomainError() bool {
	return r.state == StateDomainError
}

// IsFault reports whether r holds a fault.
func (r Result[T]) IsFault() bool {
	return r.state == StateFault
}

// Value returns the success payload and whether r is a success.
func (r Result[T]) Value() (T, bool) {
	if r.state != StateSuccess {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Errors returns a copy of the domain errors. It is nil unless r is a
// domain error.
func (r Result[T]) Errors() []ErrorMessage {
	if r.state != StateDomainError {
		return nil
	}
	return append([]ErrorMessage(nil), r.errors...)
}

// Err returns the fault error. It is nil unless r is a fault.
func (r Result[T]) Err() error {
	if r.state != StateFault {
		return nil
	}
	return r.fault
}

// FaultInfo flattens the fault's error chain into an ordered collection,
// outermost error first. Joined errors are expanded depth first.
func (r Result[T]) FaultInfo() []ExceptionInfo {
	if r.state != StateFault {
		return nil
	}
	return collectExceptions(r.fault)
}

// EnvelopeState implements Envelope.
func (r Result[T]) EnvelopeState() State {
	return r.state
}

// EnvelopePayload implements Envelope.
func (r Result[T]) EnvelopePayload() any {
	switch r.state {
	case StateSuccess:
		return r.value
	case StateDomainError:
		return r.Errors()
	case StateFault:
		return r.FaultInfo()
	default:
		return nil
	}
}

// String renders the state and payload for debugging.
func (r Result[T]) String() string {
	return fmt.Sprintf("%s(%v)", r.state, r.EnvelopePayload())
}

// Match calls the handler for the populated branch of r and returns its
// value. It panics with ErrUnknownState when r is the zero Result.
func Match[T, R any](r Result[T], onSuccess func(T) R, onDomainError func([]ErrorMessage) R, onFault func(error) R) R {
	switch r.state {
	case StateSuccess:
		return onSuccess(r.value)
	case StateDomainError:
		return onDomainError(r.Errors())
	case StateFault:
		return onFault(r.fault)
	default:
		panic(fmt.Errorf("%w: %s", ErrUnknownState, r.state))
	}
}

// Map transforms a success payload and passes the other branches through.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	switch r.state {
	case StateSuccess:
		return Success(fn(r.value))
	case StateDomainError:
		return Result[U]{state: StateDomainError, errors: r.errors}
	case StateFault:
		return Result[U]{state: StateFault, fault: r.fault}
	default:
		return Result[U]{}
	}
}

// collectExceptions walks err and every wrapped error, preserving order.
func collectExceptions(err error) []ExceptionInfo {
	infos := []ExceptionInfo{}
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		infos = append(infos, ExceptionInfo{Type: fmt.Sprintf("%T", e), Message: e.Error()})
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return infos
}
