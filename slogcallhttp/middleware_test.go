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
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"github.com/pjscruggs/slogcall"
	"github.com/pjscruggs/slogcall/slogcalltest"
)

// newInterceptor returns an interceptor recording into a fresh recorder.
func newInterceptor(t *testing.T, opts ...slogcall.Option) (*slogcall.Interceptor, *slogcalltest.Recorder) {
	t.Helper()

	rec := &slogcalltest.Recorder{}
	ic, err := slogcall.New(rec, opts...)
	if err != nil {
		t.Fatalf("slogcall.New() error: %v", err)
	}
	return ic, rec
}

// TestMiddlewareUsesIncomingHeader stores and echoes the caller's identifier.
func TestMiddlewareUsesIncomingHeader(t *testing.T) {
	t.Parallel()

	var seen string
	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = slogcall.CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/greet", nil)
	req.Header.Set(DefaultHeader, "req-5")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if seen != "req-5" {
		t.Fatalf("handler correlation id = %q", seen)
	}
	if got := rr.Header().Get(DefaultHeader); got != "req-5" {
		t.Fatalf("response header = %q", got)
	}
}

// TestMiddlewareGeneratesIdentifiers creates UUIDs when the header is absent.
func TestMiddlewareGeneratesIdentifiers(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	Middleware()(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(rr.Header().Get(DefaultHeader)); err != nil {
		t.Fatalf("generated id %q is not a UUID: %v", rr.Header().Get(DefaultHeader), err)
	}

	rr = httptest.NewRecorder()
	var seen bool
	Middleware(WithIDGenerator(nil), WithHeader("x-correlation-id"))(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, seen = slogcall.CorrelationIDFromContext(r.Context())
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen || rr.Header().Get("X-Correlation-Id") != "" {
		t.Fatalf("generation disabled but an identifier was set")
	}
}

// TestMiddlewareRequestLogger attaches a logger carrying the identifier.
func TestMiddlewareRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := Middleware(WithLogger(base), WithIDGenerator(func() string { return "gen-1" }))(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			slogcall.Logger(r.Context()).Info("handled")
		}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), `"correlationId":"gen-1"`) {
		t.Fatalf("log output = %s", buf.String())
	}
}

// TestMiddlewareInterceptsRequests logs the request as a call returning its status.
func TestMiddlewareInterceptsRequests(t *testing.T) {
	t.Parallel()

	ic, rec := newInterceptor(t)
	handler := Middleware(WithInterceptor(ic), WithTargetName("Shop"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/items/42?draft=1", nil)
	req.Header.Set(DefaultHeader, "req-8")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry, ok := rec.Last()
	if !ok {
		t.Fatalf("no record emitted")
	}
	checks := map[string]any{
		slogcall.KeyMethod:          "Shop.POST /items/42",
		slogcall.KeyTraceIdentifier: "req-8",
		"url":                       "/items/42?draft=1",
		slogcall.KeyReturnValue:     http.StatusCreated,
	}
	for name, want := range checks {
		if got, _ := entry.Value(name); got != want {
			t.Errorf("%s = %#v, want %#v", name, got, want)
		}
	}
}

// TestMiddlewareSkipsHealthChecks serves health paths without call records.
func TestMiddlewareSkipsHealthChecks(t *testing.T) {
	t.Parallel()

	ic, rec := newInterceptor(t)
	var seen string
	handler := Middleware(
		WithInterceptor(ic),
		WithSkipPaths("/healthz", ""),
		WithSkipPathPrefixes("/ready/"),
	)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = slogcall.CorrelationIDFromContext(r.Context())
	}))

	for _, path := range []string{"/healthz", "/ready/db"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(DefaultHeader, "health-1")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen != "health-1" {
			t.Fatalf("%s: correlation id = %q, want health-1", path, seen)
		}
	}
	if rec.Len() != 0 {
		t.Fatalf("recorded %d entries for health checks, want 0", rec.Len())
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz/deep", nil))
	if rec.Len() != 1 {
		t.Fatalf("recorded %d entries, want 1", rec.Len())
	}
}

// TestMiddlewareKeepsWriterCapabilities exposes flushing and hijacking to
// intercepted handlers.
func TestMiddlewareKeepsWriterCapabilities(t *testing.T) {
	t.Parallel()

	ic, rec := newInterceptor(t)
	var flusher, hijacker bool
	var hijackErr error
	handler := Middleware(WithInterceptor(ic))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var f http.Flusher
		f, flusher = w.(http.Flusher)
		var h http.Hijacker
		h, hijacker = w.(http.Hijacker)
		if hijacker {
			_, _, hijackErr = h.Hijack()
		}
		_, _ = io.WriteString(w, "data: 1\n\n")
		if flusher {
			f.Flush()
		}
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events", nil))

	if !flusher || !rr.Flushed {
		t.Fatalf("flusher = %v, flushed = %v, want both true", flusher, rr.Flushed)
	}
	if !hijacker || hijackErr != http.ErrNotSupported {
		t.Fatalf("hijacker = %v, err = %v, want ErrNotSupported", hijacker, hijackErr)
	}
	entry, ok := rec.Last()
	if !ok {
		t.Fatalf("no record emitted")
	}
	if got, _ := entry.Value(slogcall.KeyReturnValue); got != http.StatusOK {
		t.Fatalf("ReturnValue = %#v, want 200", got)
	}
}

// TestMiddlewareSwallowedPanic answers with 500 when the failure is swallowed.
func TestMiddlewareSwallowedPanic(t *testing.T) {
	t.Parallel()

	ic, rec := newInterceptor(t, slogcall.WithFailureMode(slogcall.FailureSwallow))
	handler := Middleware(WithInterceptor(ic))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler bug")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if rec.Len() != 2 {
		t.Fatalf("recorded %d entries, want failure and call records", rec.Len())
	}
}

// TestMiddlewareExtractsTraceContext falls back to the trace ID for correlation.
func TestMiddlewareExtractsTraceContext(t *testing.T) {
	t.Parallel()

	var id string
	handler := Middleware(WithIDGenerator(nil), WithPropagators(propagation.TraceContext{}))(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			id, _ = slogcall.DefaultCorrelation.CorrelationID(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if id != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("correlation id = %q", id)
	}
}

// TestMiddlewareCloudTraceContext records the X-Cloud-Trace-Context trace ID.
func TestMiddlewareCloudTraceContext(t *testing.T) {
	t.Parallel()

	ic, rec := newInterceptor(t)
	handler := Middleware(WithIDGenerator(nil), WithInterceptor(ic), WithCloudTraceContext())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	req := httptest.NewRequest(http.MethodGet, "/greet", nil)
	req.Header.Set("X-Cloud-Trace-Context", "105445aa7843bc8bf206b12000100000/1;o=1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry, ok := rec.Last()
	if !ok {
		t.Fatalf("no record emitted")
	}
	if got, _ := entry.Value(slogcall.KeyTraceIdentifier); got != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("TraceIdentifier = %#v", got)
	}
}

// TestTransportForwardsCorrelation sends the identifier and logs the round trip.
func TestTransportForwardsCorrelation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Header.Get(DefaultHeader))
	}))
	defer server.Close()

	ic, rec := newInterceptor(t)
	client := &http.Client{Transport: Transport(nil, WithInterceptor(ic), WithTargetName("Upstream"))}

	ctx := slogcall.ContextWithCorrelationID(context.Background(), "req-3")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/ping", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if string(body) != "req-3" {
		t.Fatalf("server saw %q", body)
	}
	if req.Header.Get(DefaultHeader) != "" {
		t.Fatalf("transport mutated the caller's request")
	}

	entry, _ := rec.Last()
	if v, _ := entry.Value(slogcall.KeyReturnValue); v != http.StatusOK {
		t.Fatalf("ReturnValue = %v", v)
	}
	if v, _ := entry.Value(slogcall.KeyMethod); !strings.HasPrefix(v.(string), "Upstream.GET 127.0.0.1:") {
		t.Fatalf("Method = %v", v)
	}
}

// TestTransportErrors returns transport errors in every failure mode.
func TestTransportErrors(t *testing.T) {
	t.Parallel()

	ic, rec := newInterceptor(t, slogcall.WithFailureMode(slogcall.FailureSwallow))
	failing := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})
	rt := Transport(failing, WithInterceptor(ic))

	req := httptest.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	if _, err := rt.RoundTrip(req); err != io.ErrUnexpectedEOF {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	if rec.Len() != 2 {
		t.Fatalf("recorded %d entries, want 2", rec.Len())
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
