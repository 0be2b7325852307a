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

// Package slogcall instruments calls made through a service's interface so
// that every invocation is timed and logged without the caller or the
// implementation being aware of it. It builds on the standard library's
// [log/slog] package.
//
// A wrapper type implements the service interface, holds the real
// implementation and a [Target], and routes every method through [Call],
// [CallErr] or [CallVoid]:
//
//	var greetMethod = slogcall.NewMethod("Greet", slogcall.Param("name"))
//
//	type loggedGreeter struct {
//		next Greeter
//		t    *slogcall.Target
//	}
//
//	func (g loggedGreeter) Greet(ctx context.Context, name string) result.Result[string] {
//		return slogcall.Call(ctx, g.t, greetMethod, []any{name}, func() result.Result[string] {
//			return g.next.Greet(ctx, name)
//		})
//	}
//
// Each call produces one record with the template
//
//	TraceIdentifier: {TraceIdentifier} - Method: {Method} - Executed in {ElapsedMilliseconds}ms - Arguments: name:{name} - ReturnValue (): {ReturnValue}
//
// and the values in placeholder order. Simple arguments (numbers, strings,
// times, UUIDs, decimals and so on, see [IsSimple]) are logged verbatim;
// complex arguments are logged as an [Argument] pairing the concrete type
// name with JSON text produced by the [Serializer], which omits struct
// fields tagged `slogcall:"exclude"`. Parameters declared with
// [ExcludedParam] are logged as "Excluded". Return values that are
// [github.com/pjscruggs/slogcall/result.Envelope]s are unwrapped so the
// payload, domain errors or fault information is logged rather than the
// envelope itself.
//
// # Severity
//
// Records are written at the severity resolved for the contract by the
// [SeverityResolver]: an entry set with [SeverityResolver.Set], the
// [WithSeverity] registration option or a configuration file, falling back
// to [SeverityInformation]. [SeverityNone] suppresses the record.
//
// # Failures
//
// When the implementation returns an error or panics, a separate record is
// written immediately at [SeverityCritical] and the call record is still
// produced. [FailurePropagate] (the default) then hands the failure to the
// caller; [FailureSwallow] completes the call as if it had succeeded.
//
// # Subpackages
//
//   - [github.com/pjscruggs/slogcall/result] defines the result envelope.
//   - [github.com/pjscruggs/slogcall/slogcallhttp] assigns correlation
//     identifiers to incoming HTTP requests.
//   - [github.com/pjscruggs/slogcall/slogcallgrpc] logs gRPC calls as
//     intercepted calls and propagates correlation identifiers.
//   - [github.com/pjscruggs/slogcall/slogcallzap] and
//     [github.com/pjscruggs/slogcall/slogcalllogrus] provide sinks for zap
//     and logrus.
//   - [github.com/pjscruggs/slogcall/slogcallconfig] loads severities from
//     YAML and reloads them on change.
package slogcall
