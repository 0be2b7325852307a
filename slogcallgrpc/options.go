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
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogcall"
)

// DefaultCorrelationKey is the metadata key carrying the correlation
// identifier between services.
const DefaultCorrelationKey = "x-request-id"

// HealthServicePrefix prefixes the methods of the standard gRPC health
// service. Pass it to WithSkipMethodPrefixes to keep probes out of the logs.
const HealthServicePrefix = "/grpc.health.v1.Health/"

// Option configures gRPC interceptors and helper functions.
type Option func(*config)

type config struct {
	correlationKey string
	enableOTel     bool
	tracerProvider trace.TracerProvider
	propagators    propagation.TextMapPropagator
	propagatorsSet bool
	propagateTrace bool
	spanAttributes []attribute.KeyValue
	filters        []otelgrpc.Filter
	logRequest     bool
	logResponse    bool
	skipMethods    map[string]struct{}
	skipPrefixes   []string
}

// defaultConfig returns the baseline configuration for slogcall gRPC helpers.
func defaultConfig() *config {
	return &config{
		correlationKey: DefaultCorrelationKey,
		enableOTel:     true,
		propagateTrace: true,
		logRequest:     true,
		logResponse:    true,
	}
}

// applyOptions applies the provided Option list, starting from defaultConfig.
func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithCorrelationKey overrides the metadata key read on servers and written
// on clients. Keys are lower-cased as gRPC metadata requires.
func WithCorrelationKey(key string) Option {
	return func(cfg *config) {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			key = DefaultCorrelationKey
		}
		cfg.correlationKey = key
	}
}

// WithPropagators sets the text map propagator used for extracting metadata
// (server) or injecting metadata (client). When omitted, the global propagator
// is used.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.propagators = p
		cfg.propagatorsSet = true
	}
}

// WithCloudTraceContext extracts Google Cloud's X-Cloud-Trace-Context
// header alongside W3C trace context. It replaces any propagator set with
// WithPropagators; see slogcall.CloudTracePropagator.
func WithCloudTraceContext() Option {
	return WithPropagators(slogcall.CloudTracePropagator())
}

// WithTracerProvider configures the tracer provider used when composing
// otelgrpc StatsHandlers.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}

// WithTracePropagation toggles extraction and injection of trace context on
// gRPC servers and clients. Enabled by default.
func WithTracePropagation(enabled bool) Option {
	return func(cfg *config) {
		cfg.propagateTrace = enabled
	}
}

// WithOTel enables or disables automatic otelgrpc StatsHandlers. Enabled by
// default.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithSpanAttributes appends OpenTelemetry span attributes applied when
// otelgrpc instrumentation is active.
func WithSpanAttributes(attrs ...attribute.KeyValue) Option {
	return func(cfg *config) {
		cfg.spanAttributes = append(cfg.spanAttributes, attrs...)
	}
}

// WithFilter appends an otelgrpc filter applied before spans are created.
func WithFilter(filter otelgrpc.Filter) Option {
	return func(cfg *config) {
		if filter != nil {
			cfg.filters = append(cfg.filters, filter)
		}
	}
}

// WithRequestLogging toggles logging of request messages. When disabled the
// request parameter is logged as excluded. Enabled by default.
func WithRequestLogging(enabled bool) Option {
	return func(cfg *config) {
		cfg.logRequest = enabled
	}
}

// WithResponseLogging toggles logging of response messages. Enabled by
// default.
func WithResponseLogging(enabled bool) Option {
	return func(cfg *config) {
		cfg.logResponse = enabled
	}
}

// WithSkipMethods runs the named full methods ("/pkg.Service/Method")
// without logging them as calls. Correlation and trace extraction still
// apply.
func WithSkipMethods(fullMethods ...string) Option {
	return func(cfg *config) {
		for _, m := range fullMethods {
			if m == "" {
				continue
			}
			if cfg.skipMethods == nil {
				cfg.skipMethods = map[string]struct{}{}
			}
			cfg.skipMethods[m] = struct{}{}
		}
	}
}

// WithSkipMethodPrefixes is like WithSkipMethods for every method whose full
// name starts with one of prefixes.
func WithSkipMethodPrefixes(prefixes ...string) Option {
	return func(cfg *config) {
		for _, p := range prefixes {
			if p != "" {
				cfg.skipPrefixes = append(cfg.skipPrefixes, p)
			}
		}
	}
}

// skipped reports whether fullMethod matches a skip rule.
func (cfg *config) skipped(fullMethod string) bool {
	if _, ok := cfg.skipMethods[fullMethod]; ok {
		return true
	}
	for _, prefix := range cfg.skipPrefixes {
		if strings.HasPrefix(fullMethod, prefix) {
			return true
		}
	}
	return false
}
