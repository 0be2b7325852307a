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
	"context"

	"go.opentelemetry.io/otel/trace"
)

// CorrelationProvider exposes the read-only correlation identifier of the
// ambient call. An absent identifier is valid and reported with ok=false.
type CorrelationProvider interface {
	CorrelationID(ctx context.Context) (id string, ok bool)
}

// CorrelationFunc adapts a function to CorrelationProvider.
type CorrelationFunc func(ctx context.Context) (string, bool)

// CorrelationID implements CorrelationProvider.
func (f CorrelationFunc) CorrelationID(ctx context.Context) (string, bool) {
	if f == nil {
		return "", false
	}
	return f(ctx)
}

var (
	// ContextCorrelation reads identifiers stored by ContextWithCorrelationID.
	ContextCorrelation CorrelationProvider = CorrelationFunc(CorrelationIDFromContext)

	// TraceCorrelation uses the OpenTelemetry trace ID of the span in ctx.
	TraceCorrelation CorrelationProvider = CorrelationFunc(traceCorrelationID)

	// DefaultCorrelation prefers an explicit context identifier and falls
	// back to the active trace ID.
	DefaultCorrelation = FirstCorrelation(ContextCorrelation, TraceCorrelation)
)

// FirstCorrelation returns a provider that consults providers in order and
// returns the first identifier found.
func FirstCorrelation(providers ...CorrelationProvider) CorrelationProvider {
	chain := make([]CorrelationProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return CorrelationFunc(func(ctx context.Context) (string, bool) {
		for _, p := range chain {
			if id, ok := p.CorrelationID(ctx); ok {
				return id, true
			}
		}
		return "", false
	})
}

// traceCorrelationID extracts the 32-char hex trace ID from the span context
// in ctx, if one is valid.
func traceCorrelationID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", false
	}
	return sc.TraceID().String(), true
}
