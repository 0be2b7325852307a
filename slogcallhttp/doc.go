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

// Package slogcallhttp carries slogcall correlation identifiers across HTTP
// boundaries and, optionally, logs each request as an intercepted call.
//
// [Middleware] reads the X-Request-ID header of incoming requests, generating
// a UUID when it is absent, stores it with slogcall.ContextWithCorrelationID
// and echoes it on the response. Wrappers invoked by the handler then log
// the same identifier. [Transport] forwards the identifier and the trace
// context on outgoing requests.
//
// With [WithInterceptor] both helpers also route the request itself through
// a slogcall.Interceptor: the record is labelled "<target>.<METHOD> <route>",
// logs the request URL as its single parameter and the response status code
// as its return value.
package slogcallhttp
