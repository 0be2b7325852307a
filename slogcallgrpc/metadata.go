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

package slogcallgrpc

import (
	"context"
	"encoding/base64"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"

	"github.com/pjscruggs/slogcall"
)

type metadataCarrier struct {
	metadata.MD
}

// Get returns the first value for the provided metadata key.
func (mc metadataCarrier) Get(key string) string {
	return first(mc.MD, key)
}

// Set stores the value under the provided metadata key.
func (mc metadataCarrier) Set(key string, value string) {
	mc.MD.Set(key, value)
}

// Keys reports all metadata keys present in the carrier.
func (mc metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(mc.MD))
	for k := range mc.MD {
		keys = append(keys, k)
	}
	return keys
}

// withIncomingCorrelation stores the correlation identifier sent by the
// caller, if any.
func withIncomingCorrelation(ctx context.Context, md metadata.MD, cfg *config) context.Context {
	if id := first(md, cfg.correlationKey); id != "" {
		return slogcall.ContextWithCorrelationID(ctx, id)
	}
	return ctx
}

// withOutgoingMetadata copies the outgoing metadata of ctx and adds the
// correlation identifier and trace context.
func withOutgoingMetadata(ctx context.Context, cfg *config) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		md = metadata.New(nil)
	} else {
		md = md.Copy()
	}
	if id, ok := slogcall.CorrelationIDFromContext(ctx); ok && first(md, cfg.correlationKey) == "" {
		md.Set(cfg.correlationKey, id)
	}
	injectClientTrace(ctx, md, cfg)
	return metadata.NewOutgoingContext(ctx, md)
}

// ensureServerSpanContext obtains a remote span context from request metadata or propagation.
func ensureServerSpanContext(ctx context.Context, md metadata.MD, cfg *config) context.Context {
	if !cfg.propagateTrace {
		return ctx
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return ctx
	}
	if newCtx, sc := extractWithPropagator(ctx, md, cfg); sc.IsValid() {
		return newCtx
	}
	if newCtx, sc := extractTraceParent(ctx, md); sc.IsValid() {
		return newCtx
	}
	if sc, ok := parseGRPCTraceBin(first(md, "grpc-trace-bin")); ok {
		return trace.ContextWithRemoteSpanContext(ctx, sc)
	}
	return ctx
}

// extractWithPropagator uses configured propagators to pull trace context from metadata.
func extractWithPropagator(ctx context.Context, md metadata.MD, cfg *config) (context.Context, trace.SpanContext) {
	propagator := cfg.propagators
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	if propagator == nil {
		return ctx, trace.SpanContextFromContext(ctx)
	}
	extracted := propagator.Extract(ctx, metadataCarrier{md})
	return extracted, trace.SpanContextFromContext(extracted)
}

// extractTraceParent parses W3C traceparent headers from metadata.
func extractTraceParent(ctx context.Context, md metadata.MD) (context.Context, trace.SpanContext) {
	if val := first(md, "traceparent"); val == "" {
		return ctx, trace.SpanContextFromContext(ctx)
	}
	tc := propagation.TraceContext{}
	extracted := tc.Extract(ctx, metadataCarrier{md})
	return extracted, trace.SpanContextFromContext(extracted)
}

// injectClientTrace injects tracing metadata for outbound RPCs.
func injectClientTrace(ctx context.Context, md metadata.MD, cfg *config) {
	if !cfg.propagateTrace {
		return
	}
	propagator := cfg.propagators
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	if propagator != nil {
		propagator.Inject(ctx, metadataCarrier{md})
	}
}

// parseGRPCTraceBin decodes the binary grpc-trace-bin header: a version
// byte followed by field 0 (trace ID), field 1 (span ID) and field 2 (flags).
func parseGRPCTraceBin(val string) (trace.SpanContext, bool) {
	if val == "" {
		return trace.SpanContext{}, false
	}
	data, err := base64.StdEncoding.DecodeString(val)
	if err != nil || len(data) < 29 || data[0] != 0 || data[1] != 0 || data[18] != 1 || data[27] != 2 {
		return trace.SpanContext{}, false
	}

	var (
		traceID trace.TraceID
		spanID  trace.SpanID
	)
	copy(traceID[:], data[2:18])
	copy(spanID[:], data[19:27])

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.TraceFlags(data[28]),
		Remote:     true,
	})
	if !sc.IsValid() {
		return trace.SpanContext{}, false
	}
	return sc, true
}

// first returns the first metadata value for the provided key.
func first(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	values := md.Get(key)
	if len(values) > 0 {
		return values[0]
	}
	return ""
}
