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

// Package result defines the tagged Success / DomainError / Fault envelope
// that intercepted services return. A [Result] holds exactly one of the
// three states and exposes it through [Result.State], [Match] and the
// non-generic [Envelope] view used by slogcall when it logs a call.
//
// The zero Result is in [StateUnknown]; it is never produced by the
// constructors and consumers are expected to treat it as an invariant
// violation.
package result
