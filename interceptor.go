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

package slogcall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"strings"
	"time"
)

// Interceptor times and logs calls routed through the wrappers bound to it.
// It holds no per-call state and is safe for concurrent use.
type Interceptor struct {
	sink           Sink
	cfg            interceptorConfig
	resolver       *SeverityResolver
	correlation    CorrelationProvider
	serializer     *Serializer
	internalLogger *slog.Logger
}

// New builds an Interceptor that emits one record per call to sink. It
// reads SLOGCALL_* environment overrides once per process and then applies
// opts.
//
// Example:
//
//	ic, err := slogcall.New(slogcall.NewSlogSink(logger),
//		slogcall.WithDefaultSeverity(slogcall.SeverityDebug),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	orders := NewLoggedOrders(impl, slogcall.Bind[Orders](ic, impl))
func New(sink Sink, opts ...Option) (*Interceptor, error) {
	if sink == nil {
		return nil, fmt.Errorf("slogcall: nil sink")
	}

	builder := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(builder)
		}
	}

	internalLogger := builder.internalLogger
	if internalLogger == nil {
		internalLogger = slog.New(slog.DiscardHandler)
	}

	cfg := cachedConfigFromEnv(internalLogger)
	if err := applyOptions(&cfg, builder); err != nil {
		return nil, fmt.Errorf("slogcall: %w", err)
	}

	resolver := builder.resolver
	if resolver == nil {
		resolver = NewSeverityResolver(cfg.DefaultSeverity)
	}
	correlation := builder.correlation
	if correlation == nil {
		correlation = DefaultCorrelation
	}

	return &Interceptor{
		sink:           sink,
		cfg:            cfg,
		resolver:       resolver,
		correlation:    correlation,
		serializer:     NewSerializer(cfg.MaxValueSize),
		internalLogger: internalLogger,
	}, nil
}

// Resolver returns the severity resolver consulted on every call.
func (ic *Interceptor) Resolver() *SeverityResolver {
	return ic.resolver
}

// Serializer returns the serializer used for arguments and results.
func (ic *Interceptor) Serializer() *Serializer {
	return ic.serializer
}

// FailureMode reports the configured failure handling.
func (ic *Interceptor) FailureMode() FailureMode {
	return ic.cfg.FailureMode
}

// Target is an implementation bound to an Interceptor under a contract.
// Wrappers hold a Target and route each method through Call, CallErr or
// CallVoid.
type Target struct {
	ic           *Interceptor
	contract     reflect.Type
	contractName string
	name         string
}

// Bind binds impl under contract C. Severity is resolved by C on every
// call; the implementation's type name labels the records.
func Bind[C any](ic *Interceptor, impl C) *Target {
	contract := reflect.TypeFor[C]()
	return &Target{
		ic:           ic,
		contract:     contract,
		contractName: ContractName(contract),
		name:         implementationName(impl),
	}
}

// BindName binds a target known only by name, such as a remote service.
// Severity is resolved by name.
func BindName(ic *Interceptor, contractName, targetName string) *Target {
	if targetName == "" {
		targetName = contractName
	}
	return &Target{ic: ic, contractName: contractName, name: targetName}
}

// Named returns a copy of t whose records use name as the target label.
func (t *Target) Named(name string) *Target {
	c := *t
	c.name = name
	return &c
}

// Name returns the target label.
func (t *Target) Name() string {
	return t.name
}

// Contract returns the contract type, or nil for targets bound by name.
func (t *Target) Contract() reflect.Type {
	return t.contract
}

// ContractName returns the qualified contract name.
func (t *Target) ContractName() string {
	return t.contractName
}

// Interceptor returns the interceptor the target is bound to.
func (t *Target) Interceptor() *Interceptor {
	return t.ic
}

// severity resolves the record severity for calls against t.
func (t *Target) severity() Severity {
	if t.contract != nil {
		return t.ic.resolver.Resolve(t.contract)
	}
	return t.ic.resolver.ResolveName(t.contractName)
}

// Parameter declares one method parameter.
type Parameter struct {
	Name string
	// Excluded replaces the logged value with ExcludedPlaceholder.
	Excluded bool
}

// Param declares a logged parameter.
func Param(name string) Parameter {
	return Parameter{Name: name}
}

// ExcludedParam declares a parameter whose value is never logged.
func ExcludedParam(name string) Parameter {
	return Parameter{Name: name, Excluded: true}
}

// Method describes an intercepted method: its name and its parameters in
// declaration order. Methods are immutable and usually declared once as
// package variables next to the wrapper.
type Method struct {
	name   string
	params []Parameter
}

// ErrInvalidParameter is returned by DeclareMethod for a parameter name that
// cannot be used as a record placeholder.
var ErrInvalidParameter = errors.New("slogcall: invalid parameter name")

// reservedPlaceholders are the names every call record already uses.
var reservedPlaceholders = map[string]struct{}{
	KeyTraceIdentifier: {},
	KeyMethod:          {},
	KeyElapsed:         {},
	KeyReturnValue:     {},
	KeyFailure:         {},
}

// DeclareMethod declares a method. Parameter names must be non-empty,
// unique, free of braces and distinct from the record's own placeholders
// (KeyTraceIdentifier, KeyMethod, KeyElapsed, KeyReturnValue, KeyFailure).
func DeclareMethod(name string, params ...Parameter) (*Method, error) {
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		if err := checkParameterName(p.Name); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%s: %w: %q declared twice", name, ErrInvalidParameter, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return &Method{name: name, params: append([]Parameter(nil), params...)}, nil
}

// NewMethod is like DeclareMethod but panics on an invalid declaration. It
// suits package-level method variables.
func NewMethod(name string, params ...Parameter) *Method {
	m, err := DeclareMethod(name, params...)
	if err != nil {
		panic(err)
	}
	return m
}

func checkParameterName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidParameter)
	case strings.ContainsAny(name, "{}"):
		return fmt.Errorf("%w: %q contains a brace", ErrInvalidParameter, name)
	}
	if _, reserved := reservedPlaceholders[name]; reserved {
		return fmt.Errorf("%w: %q is a record placeholder", ErrInvalidParameter, name)
	}
	return nil
}

// Name returns the method name.
func (m *Method) Name() string {
	return m.name
}

// Params returns a copy of the declared parameters.
func (m *Method) Params() []Parameter {
	return append([]Parameter(nil), m.params...)
}

// PanicError carries a panic raised by a wrapped implementation.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements error.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Call routes a method returning a single value through t's interceptor.
// Failures are panics raised by fn.
//
// args holds the runtime arguments in declaration order; it may be shorter
// than the declared parameters when trailing optional arguments were not
// supplied. fn must invoke the real implementation with the original,
// unmodified arguments.
func Call[R any](ctx context.Context, t *Target, m *Method, args []any, fn func() R) R {
	res, _ := invoke(ctx, t, m, args, true, func() (R, error) {
		return fn(), nil
	})
	return res
}

// CallErr routes a method returning a value and an error. A non-nil error
// or a panic counts as a failure.
func CallErr[R any](ctx context.Context, t *Target, m *Method, args []any, fn func() (R, error)) (R, error) {
	return invoke(ctx, t, m, args, true, fn)
}

// CallVoid routes a method returning only an error. The record's result is
// absent.
func CallVoid(ctx context.Context, t *Target, m *Method, args []any, fn func() error) error {
	_, err := invoke(ctx, t, m, args, false, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// invoke runs the interception protocol for one call. All per-call state
// lives on this stack frame.
func invoke[R any](ctx context.Context, t *Target, m *Method, args []any, hasResult bool, fn func() (R, error)) (R, error) {
	ic := t.ic
	start := time.Now()

	severity := t.severity()
	label := t.name + "." + m.name
	emitting := ic.enabled(ctx, severity)

	var (
		correlationID string
		slots         []argumentSlot
	)
	if emitting {
		correlationID, _ = ic.correlation.CorrelationID(ctx)
		slots = ic.captureArguments(ctx, label, m, args)
	}

	res, panicErr, err := runDelegate(fn)
	elapsed := time.Since(start).Milliseconds()

	failure := err
	if panicErr != nil {
		failure = panicErr
	}
	if failure != nil {
		ic.logFailure(ctx, label, failure)
	}

	if emitting {
		var returnValue any
		if hasResult {
			returnValue = ic.unwrapResult(ctx, label, res)
		}
		ic.emit(ctx, buildRecord(severity, correlationID, label, elapsed, len(m.params), slots, returnValue))
	}

	if ic.cfg.FailureMode == FailureSwallow {
		return res, nil
	}
	if panicErr != nil {
		panic(panicErr.Value)
	}
	return res, err
}

// runDelegate calls fn, converting a panic into a PanicError.
func runDelegate[R any](fn func() (R, error)) (res R, panicErr *PanicError, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicErr = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	res, err = fn()
	return res, nil, err
}

// enabled reports whether a record at severity would be emitted.
func (ic *Interceptor) enabled(ctx context.Context, severity Severity) bool {
	if severity == SeverityNone {
		return false
	}
	if !severity.Valid() {
		// Still emit so the misconfiguration is reported by emit.
		return true
	}
	if es, ok := ic.sink.(EnabledSink); ok {
		return es.Enabled(ctx, severity)
	}
	return true
}

// captureArguments builds the logged argument slots in declaration order.
// Slots without a runtime argument, or whose argument is absent, are
// skipped.
func (ic *Interceptor) captureArguments(ctx context.Context, label string, m *Method, args []any) []argumentSlot {
	slots := make([]argumentSlot, 0, len(m.params))
	for i, p := range m.params {
		if i >= len(args) {
			break
		}
		v := args[i]
		if isAbsent(v) {
			continue
		}
		if p.Excluded {
			slots = append(slots, argumentSlot{name: p.Name, value: ExcludedPlaceholder})
			continue
		}
		if simple, ok := simpleValue(v); ok {
			slots = append(slots, argumentSlot{name: p.Name, value: simple})
			continue
		}
		arg, err := ic.serializer.argument(v)
		if err != nil {
			ic.diagnose(ctx, "argument not serializable", err,
				slog.String("method", label), slog.String("parameter", p.Name))
		}
		slots = append(slots, argumentSlot{name: p.Name, value: arg})
	}
	return slots
}

// unwrapResult returns the loggable form of the call's return value.
func (ic *Interceptor) unwrapResult(ctx context.Context, label string, v any) any {
	out, err := ic.serializer.Unwrap(v)
	if err != nil {
		ic.diagnose(ctx, "return value not loggable", err, slog.String("method", label))
	}
	return out
}

// logFailure writes the immediate record for a failed implementation call.
func (ic *Interceptor) logFailure(ctx context.Context, label string, failure error) {
	ic.emit(ctx, Record{
		Severity: ic.cfg.FailureSeverity,
		Template: failureRecord,
		Values:   []any{label, failure},
	})
}

// emit hands rec to the sink. Unsupported severities are reported instead
// of emitted, and a panicking sink never reaches the caller.
func (ic *Interceptor) emit(ctx context.Context, rec Record) {
	if rec.Severity == SeverityNone {
		return
	}
	if err := validateSeverity(rec.Severity); err != nil {
		ic.diagnose(ctx, "record not emitted", err, slog.String("template", rec.Template))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			ic.diagnose(ctx, "sink panicked", fmt.Errorf("%v", r), slog.String("template", rec.Template))
		}
	}()
	ic.sink.Log(ctx, rec.Severity, rec.Template, rec.Values...)
}

// diagnose reports a problem in the logging path to the internal logger.
func (ic *Interceptor) diagnose(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.Any("error", err))
	ic.internalLogger.LogAttrs(ctx, slog.LevelError, "slogcall: "+msg, attrs...)
}

// implementationName returns the type name of impl without package or
// pointer decoration.
func implementationName(impl any) string {
	t := reflect.TypeOf(impl)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
