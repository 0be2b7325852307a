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
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/propagation"

	"github.com/pjscruggs/slogcall"
)

var errNoResponse = errors.New("slogcallhttp: round trip aborted")

// Transport returns an http.RoundTripper that forwards the correlation
// identifier and trace context of each request's context. With
// WithInterceptor the round trip is also logged as an intercepted call.
func Transport(base http.RoundTripper, opts ...Option) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return roundTripper{base: base, cfg: applyOptions(opts)}
}

type roundTripper struct {
	base http.RoundTripper
	cfg  *config
}

// RoundTrip decorates a clone of req and forwards it to the base transport.
func (t roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("slogcallhttp: nil request")
	}
	ctx := req.Context()
	out := req.Clone(ctx)

	if id, ok := slogcall.CorrelationIDFromContext(ctx); ok && out.Header.Get(t.cfg.header) == "" {
		out.Header.Set(t.cfg.header, id)
	}
	if t.cfg.propagateTrace {
		propagatorFor(t.cfg).Inject(ctx, propagation.HeaderCarrier(out.Header))
	}

	if t.cfg.interceptor == nil {
		return t.base.RoundTrip(out)
	}

	var (
		resp      *http.Response
		err       error
		completed bool
	)
	target := slogcall.BindName(t.cfg.interceptor, t.cfg.targetName, t.cfg.targetName)
	method := slogcall.NewMethod(out.Method+" "+out.URL.Host, urlParams...)
	_, _ = slogcall.CallErr(ctx, target, method, []any{out.URL.String()}, func() (int, error) {
		resp, err = t.base.RoundTrip(out)
		completed = true
		if err != nil {
			return 0, err
		}
		return resp.StatusCode, nil
	})
	if !completed {
		return nil, errNoResponse
	}
	return resp, err
}
