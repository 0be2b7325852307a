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

package slogcallhttp

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogcall"
)

// DefaultHeader carries the correlation identifier.
const DefaultHeader = "X-Request-ID"

// Option configures HTTP middleware or transport behaviour.
type Option func(*config)

type config struct {
	header         string
	generateID     func() string
	echoHeader     bool
	logger         *slog.Logger
	interceptor    *slogcall.Interceptor
	targetName     string
	enableOTel     bool
	tracerProvider trace.TracerProvider
	propagators    propagation.TextMapPropagator
	propagatorsSet bool
	propagateTrace bool
	filters        []otelhttp.Filter
	skipPaths      map[string]struct{}
	skipPrefixes   []string
}

// defaultConfig returns the baseline configuration for slogcall HTTP helpers.
func defaultConfig() *config {
	return &config{
		header:         DefaultHeader,
		generateID:     uuid.NewString,
		echoHeader:     true,
		targetName:     "HTTP",
		propagateTrace: true,
	}
}

// applyOptions applies the provided options on top of defaultConfig.
func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithHeader overrides the header carrying the correlation identifier.
func WithHeader(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.header = http.CanonicalHeaderKey(name)
		}
	}
}

// WithIDGenerator replaces the UUID generator used when a request arrives
// without an identifier. A nil generator disables generation.
func WithIDGenerator(gen func() string) Option {
	return func(cfg *config) {
		cfg.generateID = gen
	}
}

// WithResponseHeader toggles echoing the identifier on responses. Enabled by
// default.
func WithResponseHeader(enabled bool) Option {
	return func(cfg *config) {
		cfg.echoHeader = enabled
	}
}

// WithLogger stores a request-scoped logger carrying the correlation
// identifier in each request context, where slogcall.NewSlogSink(nil) and
// slogcall.Logger find it.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithInterceptor logs every request through ic.
func WithInterceptor(ic *slogcall.Interceptor) Option {
	return func(cfg *config) {
		cfg.interceptor = ic
	}
}

// WithTargetName sets the target label and contract name used for request
// records. The default is "HTTP".
func WithTargetName(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.targetName = name
		}
	}
}

// WithOTel wraps the middleware in an otelhttp handler. Disabled by default.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithTracerProvider installs the OpenTelemetry tracer provider used when
// composing the otelhttp handler.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}

// WithPropagators supplies a TextMapPropagator used for extracting (server) or
// injecting (client) trace context. When omitted, otel.GetTextMapPropagator()
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

// WithTracePropagation toggles extraction and injection of trace context.
// Enabled by default.
func WithTracePropagation(enabled bool) Option {
	return func(cfg *config) {
		cfg.propagateTrace = enabled
	}
}

// WithFilter appends an otelhttp filter applied before spans are created.
func WithFilter(filter otelhttp.Filter) Option {
	return func(cfg *config) {
		if filter != nil {
			cfg.filters = append(cfg.filters, filter)
		}
	}
}

// WithSkipPaths serves requests for the exact URL paths without logging them
// as calls, typically health and readiness probes. Correlation still applies.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if cfg.skipPaths == nil {
				cfg.skipPaths = map[string]struct{}{}
			}
			cfg.skipPaths[p] = struct{}{}
		}
	}
}

// WithSkipPathPrefixes is like WithSkipPaths for every path under prefix.
func WithSkipPathPrefixes(prefixes ...string) Option {
	return func(cfg *config) {
		for _, p := range prefixes {
			if p != "" {
				cfg.skipPrefixes = append(cfg.skipPrefixes, p)
			}
		}
	}
}

// skipped reports whether r matches a skip rule.
func (cfg *config) skipped(r *http.Request) bool {
	path := r.URL.Path
	if _, ok := cfg.skipPaths[path]; ok {
		return true
	}
	for _, prefix := range cfg.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
