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

// Package slogcallgrpc routes gRPC calls through a slogcall.Interceptor so
// every RPC produces the same timed call record as an in-process wrapper.
//
// Server interceptors bind each RPC under its fully qualified service name
// ("helloworld.Greeter"), which is also the name severities are resolved by,
// and label records with the short service name ("Greeter.SayHello"). The
// request message is logged as the method's single parameter and the response
// as its return value; protocol buffer messages are rendered with protojson.
//
// The correlation identifier of an incoming RPC is read from the
// x-request-id metadata key, falling back to the propagated trace context.
// Client interceptors forward the caller's identifier and trace context on
// outgoing RPCs.
//
// Handler errors always reach the client unchanged. Under
// slogcall.FailureSwallow a panicking handler is logged and answered with
// codes.Internal, since gRPC cannot send an empty reply.
//
// Typical usage:
//
//	ic, _ := slogcall.New(slogcall.NewSlogSink(logger))
//	server := grpc.NewServer(slogcallgrpc.ServerOptions(ic)...)
//
//	conn, err := grpc.NewClient(target,
//	    append(slogcallgrpc.DialOptions(ic),
//	        grpc.WithTransportCredentials(insecure.NewCredentials()))...,
//	)
package slogcallgrpc
