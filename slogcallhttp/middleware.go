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
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogcall"
)

const instrumentationName = "github.com/pjscruggs/slogcall/slogcallhttp"

// CorrelationAttr is the attribute key added to request-scoped loggers.
const CorrelationAttr = "correlationId"

var urlParams = []slogcall.Parameter{slogcall.Param("url")}

// Middleware returns an http.Handler middleware that establishes the
// request's correlation identifier and, with WithInterceptor, logs the
// request as an intercepted call.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return wrapWithOTel(cfg, buildHandler(cfg, next))
	}
}

// buildHandler constructs the correlation middleware around next.
func buildHandler(cfg *config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := extractTrace(r.Context(), r.Header, cfg)

		id := strings.TrimSpace(r.Header.Get(cfg.header))
		if id == "" && cfg.generateID != nil {
			id = cfg.generateID()
		}
		if id != "" {
			ctx = slogcall.ContextWithCorrelationID(ctx, id)
			if cfg.echoHeader {
				w.Header().Set(cfg.header, id)
			}
		}
		if cfg.logger != nil {
			logger := cfg.logger
			if id != "" {
				logger = logger.With(slog.String(CorrelationAttr, id))
			}
			ctx = slogcall.ContextWithLogger(ctx, logger)
		}
		r = r.WithContext(ctx)

		if cfg.interceptor == nil || cfg.skipped(r) {
			next.ServeHTTP(w, r)
			return
		}
		serveIntercepted(cfg, w, r, next)
	})
}

// serveIntercepted runs next as an intercepted call returning the response
// status code.
func serveIntercepted(cfg *config, w http.ResponseWriter, r *http.Request, next http.Handler) {
	recorder := &statusRecorder{ResponseWriter: w}
	target := slogcall.BindName(cfg.interceptor, cfg.targetName, cfg.targetName)
	method := slogcall.NewMethod(routeName(r), urlParams...)

	completed := false
	slogcall.Call(r.Context(), target, method, []any{r.URL.String()}, func() int {
		next.ServeHTTP(recorder, r)
		completed = true
		return recorder.Status()
	})
	if !completed && !recorder.wroteHeader {
		http.Error(recorder, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// routeName names the request by its matched ServeMux pattern when present,
// otherwise by method and path.
func routeName(r *http.Request) string {
	if r.Pattern != "" {
		if strings.Contains(r.Pattern, " ") {
			return r.Pattern
		}
		return r.Method + " " + r.Pattern
	}
	return r.Method + " " + r.URL.Path
}

// extractTrace pulls a remote span context from headers when ctx carries none.
func extractTrace(ctx context.Context, header http.Header, cfg *config) context.Context {
	if !cfg.propagateTrace || trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	return propagatorFor(cfg).Extract(ctx, propagation.HeaderCarrier(header))
}

// propagatorFor returns the configured propagator or the global one.
func propagatorFor(cfg *config) propagation.TextMapPropagator {
	if cfg.propagatorsSet && cfg.propagators != nil {
		return cfg.propagators
	}
	return otel.GetTextMapPropagator()
}

// wrapWithOTel wraps handler with otelhttp middleware when enabled.
func wrapWithOTel(cfg *config, handler http.Handler) http.Handler {
	if !cfg.enableOTel {
		return handler
	}
	return otelhttp.NewHandler(handler, instrumentationName, otelOptions(cfg)...)
}

// otelOptions builds OpenTelemetry handler options from configuration.
func otelOptions(cfg *config) []otelhttp.Option {
	var otelOpts []otelhttp.Option
	if cfg.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(cfg.tracerProvider))
	}
	if cfg.propagatorsSet && cfg.propagators != nil {
		otelOpts = append(otelOpts, otelhttp.WithPropagators(cfg.propagators))
	}
	for _, filter := range cfg.filters {
		otelOpts = append(otelOpts, otelhttp.WithFilter(filter))
	}
	return otelOpts
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// WriteHeader records the status before delegating.
func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

// Write records an implicit 200 before delegating.
func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
	return s.ResponseWriter.Write(b)
}

// Status returns the written status, or 200 if the handler wrote nothing.
func (s *statusRecorder) Status() int {
	if !s.wroteHeader {
		return http.StatusOK
	}
	return s.status
}

// Flush forwards to the underlying writer when it supports http.Flusher.
func (s *statusRecorder) Flush() {
	if flusher, ok := s.ResponseWriter.(http.Flusher); ok {
		if !s.wroteHeader {
			s.status = http.StatusOK
			s.wroteHeader = true
		}
		flusher.Flush()
	}
}

// Hijack delegates to the wrapped Hijacker, or returns http.ErrNotSupported.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := s.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Push forwards HTTP/2 push requests when the underlying writer supports them.
func (s *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if pusher, ok := s.ResponseWriter.(http.Pusher); ok {
		return pusher.Push(target, opts)
	}
	return http.ErrNotSupported
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
