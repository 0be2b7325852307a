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

	"github.com/pjscruggs/slogcall/result"
)

// UnknownEnvelopePlaceholder is logged in place of an envelope whose state
// is not Success, DomainError or Fault.
const UnknownEnvelopePlaceholder = "UnknownEnvelopeState"

// ErrUnknownEnvelopeState is reported when a returned envelope is in none of
// the three defined states.
var ErrUnknownEnvelopeState = errors.New("slogcall: unknown result envelope state")

// Unwrap extracts the loggable representation of a call's return value.
//
//   - An absent value yields nil.
//   - A value that is not a result.Envelope is serialized whole.
//   - Success serializes the payload, DomainError the error collection and
//     Fault the collected exception information.
//
// Simple payloads and simple non-envelope values are returned unchanged.
// The returned value is always usable; a non-nil error describes a
// serialization problem or an envelope in an unknown state, in which case
// the placeholder UnknownEnvelopePlaceholder is returned.
func (s *Serializer) Unwrap(v any) (any, error) {
	if isAbsent(v) {
		return nil, nil
	}

	env, ok := v.(result.Envelope)
	if !ok {
		return s.loggable(v)
	}

	switch state := env.EnvelopeState(); state {
	case result.StateSuccess:
		payload := env.EnvelopePayload()
		if isAbsent(payload) {
			return nil, nil
		}
		return s.loggable(payload)
	case result.StateDomainError, result.StateFault:
		text, err := s.Marshal(env.EnvelopePayload())
		if err != nil {
			return notSerialized(env.EnvelopePayload()), err
		}
		return text, nil
	default:
		return UnknownEnvelopePlaceholder, fmt.Errorf("%w: %s (%s)", ErrUnknownEnvelopeState, state, typeName(v))
	}
}

// loggable returns simple values verbatim and serializes everything else.
func (s *Serializer) loggable(v any) (any, error) {
	if simple, ok := simpleValue(v); ok {
		return simple, nil
	}
	text, err := s.Marshal(v)
	if err != nil {
		return notSerialized(v), err
	}
	return text, nil
}
