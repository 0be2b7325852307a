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
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pjscruggs/slogcall"
)

const requestParam = "request"

// errHandlerAborted is returned when a panicking handler was swallowed by an
// interceptor in slogcall.FailureSwallow mode; gRPC cannot send a nil reply.
var errHandlerAborted = status.Error(codes.Internal, "internal error")

// methodCache holds the slogcall.Method declared for each full method name.
type methodCache struct {
	params  []slogcall.Parameter
	methods sync.Map
}

// newMethodCache declares methods with the request parameter, or none for
// streaming RPCs.
func newMethodCache(cfg *config, withRequest bool) *methodCache {
	c := &methodCache{}
	if withRequest {
		if cfg.logRequest {
			c.params = []slogcall.Parameter{slogcall.Param(requestParam)}
		} else {
			c.params = []slogcall.Parameter{slogcall.ExcludedParam(requestParam)}
		}
	}
	return c
}

// get returns the cached method for fullMethod.
func (c *methodCache) get(fullMethod string) *slogcall.Method {
	if m, ok := c.methods.Load(fullMethod); ok {
		return m.(*slogcall.Method)
	}
	_, method := splitFullMethod(fullMethod)
	m, _ := c.methods.LoadOrStore(fullMethod, slogcall.NewMethod(method, c.params...))
	return m.(*slogcall.Method)
}

// UnaryServerInterceptor logs every unary RPC through ic.
func UnaryServerInterceptor(ic *slogcall.Interceptor, opts ...Option) grpc.UnaryServerInterceptor {
	cfg := applyOptions(opts)
	methods := newMethodCache(cfg, true)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		ctx = ensureServerSpanContext(ctx, md, cfg)
		ctx = withIncomingCorrelation(ctx, md, cfg)
		if cfg.skipped(info.FullMethod) {
			return handler(ctx, req)
		}

		var (
			resp      any
			err       error
			completed bool
		)
		_, _ = slogcall.CallErr(ctx, bindService(ic, info.FullMethod), methods.get(info.FullMethod), []any{req}, func() (any, error) {
			resp, err = handler(ctx, req)
			completed = true
			return loggedReply(cfg, resp), err
		})
		if !completed {
			return nil, errHandlerAborted
		}
		return resp, err
	}
}

// StreamServerInterceptor logs every streaming RPC through ic once the
// stream handler returns.
func StreamServerInterceptor(ic *slogcall.Interceptor, opts ...Option) grpc.StreamServerInterceptor {
	cfg := applyOptions(opts)
	methods := newMethodCache(cfg, false)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		md, _ := metadata.FromIncomingContext(ctx)
		ctx = ensureServerSpanContext(ctx, md, cfg)
		ctx = withIncomingCorrelation(ctx, md, cfg)

		wrapped := &serverStream{ServerStream: ss, ctx: ctx}
		if cfg.skipped(info.FullMethod) {
			return handler(srv, wrapped)
		}

		var (
			err       error
			completed bool
		)
		_ = slogcall.CallVoid(ctx, bindService(ic, info.FullMethod), methods.get(info.FullMethod), nil, func() error {
			err = handler(srv, wrapped)
			completed = true
			return err
		})
		if !completed {
			return errHandlerAborted
		}
		return err
	}
}

// UnaryClientInterceptor logs every outgoing unary RPC through ic and
// forwards the caller's correlation identifier and trace context.
func UnaryClientInterceptor(ic *slogcall.Interceptor, opts ...Option) grpc.UnaryClientInterceptor {
	cfg := applyOptions(opts)
	methods := newMethodCache(cfg, true)

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		ctx = withOutgoingMetadata(ctx, cfg)
		if cfg.skipped(method) {
			return invoker(ctx, method, req, reply, cc, callOpts...)
		}

		var (
			err       error
			completed bool
		)
		_, _ = slogcall.CallErr(ctx, bindService(ic, method), methods.get(method), []any{req}, func() (any, error) {
			err = invoker(ctx, method, req, reply, cc, callOpts...)
			completed = true
			if err != nil {
				return nil, err
			}
			return loggedReply(cfg, reply), nil
		})
		if !completed {
			return errHandlerAborted
		}
		return err
	}
}

// StreamClientInterceptor forwards correlation and trace metadata on
// outgoing streams and logs stream establishment through ic.
func StreamClientInterceptor(ic *slogcall.Interceptor, opts ...Option) grpc.StreamClientInterceptor {
	cfg := applyOptions(opts)
	methods := newMethodCache(cfg, false)

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx = withOutgoingMetadata(ctx, cfg)
		if cfg.skipped(method) {
			return streamer(ctx, desc, cc, method, callOpts...)
		}

		var (
			cs        grpc.ClientStream
			err       error
			completed bool
		)
		_ = slogcall.CallVoid(ctx, bindService(ic, method), methods.get(method), nil, func() error {
			cs, err = streamer(ctx, desc, cc, method, callOpts...)
			completed = true
			return err
		})
		if !completed {
			return nil, errHandlerAborted
		}
		return cs, err
	}
}

// ServerOptions returns grpc.ServerOptions that install otelgrpc StatsHandlers
// and slogcall interceptors.
func ServerOptions(ic *slogcall.Interceptor, opts ...Option) []grpc.ServerOption {
	cfg := applyOptions(opts)
	var serverOpts []grpc.ServerOption

	if cfg.enableOTel {
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler(statsHandlerOptions(cfg)...)))
	}

	serverOpts = append(serverOpts,
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(ic, opts...)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(ic, opts...)),
	)
	return serverOpts
}

// DialOptions returns grpc.DialOptions that install otelgrpc StatsHandlers and interceptors.
func DialOptions(ic *slogcall.Interceptor, opts ...Option) []grpc.DialOption {
	cfg := applyOptions(opts)
	var dialOpts []grpc.DialOption

	if cfg.enableOTel {
		dialOpts = append(dialOpts, grpc.WithStatsHandler(otelgrpc.NewClientHandler(statsHandlerOptions(cfg)...)))
	}

	dialOpts = append(dialOpts,
		grpc.WithChainUnaryInterceptor(UnaryClientInterceptor(ic, opts...)),
		grpc.WithChainStreamInterceptor(StreamClientInterceptor(ic, opts...)),
	)
	return dialOpts
}

// statsHandlerOptions configures otelgrpc instrumentation based on the provided configuration.
func statsHandlerOptions(cfg *config) []otelgrpc.Option {
	var opts []otelgrpc.Option
	if cfg.tracerProvider != nil {
		opts = append(opts, otelgrpc.WithTracerProvider(cfg.tracerProvider))
	}
	if cfg.propagatorsSet && cfg.propagators != nil {
		opts = append(opts, otelgrpc.WithPropagators(cfg.propagators))
	}
	if len(cfg.spanAttributes) > 0 {
		opts = append(opts, otelgrpc.WithSpanAttributes(cfg.spanAttributes...))
	}
	for _, filter := range cfg.filters {
		opts = append(opts, otelgrpc.WithFilter(filter))
	}
	return opts
}

// bindService binds the service of fullMethod. Severity is resolved by the
// qualified service name and records carry the short one.
func bindService(ic *slogcall.Interceptor, fullMethod string) *slogcall.Target {
	service, _ := splitFullMethod(fullMethod)
	label := service
	if i := strings.LastIndexByte(service, '.'); i >= 0 {
		label = service[i+1:]
	}
	return slogcall.BindName(ic, service, label)
}

// splitFullMethod splits "/pkg.Service/Method" into its service and method.
func splitFullMethod(fullMethod string) (service, method string) {
	trimmed := strings.TrimPrefix(fullMethod, "/")
	service, method, ok := strings.Cut(trimmed, "/")
	if !ok {
		return "unknown", trimmed
	}
	return service, method
}

// loggedReply returns the value logged as the RPC's return value.
func loggedReply(cfg *config, reply any) any {
	if !cfg.logResponse {
		return nil
	}
	return reply
}

type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the request context for the wrapped server stream.
func (s *serverStream) Context() context.Context {
	return s.ctx
}
