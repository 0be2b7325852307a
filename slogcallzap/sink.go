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

// Package slogcallzap adapts a *zap.Logger to slogcall.Sink.
//
// Records are written at the zap level matching their severity. zap has no
// trace or critical level, so Trace is written at Debug and Critical at
// Error; the exact severity is always kept in the "severity" field. Each
// placeholder becomes a field, and complex arguments are encoded as objects
// with ArgumentType and Value keys.
package slogcallzap

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pjscruggs/slogcall"
)

// Field keys added to every record besides the placeholders.
const (
	SeverityKey = "severity"
	TraceIDKey  = "trace_id"
	SpanIDKey   = "span_id"
)

// Sink writes slogcall records to a zap logger.
type Sink struct {
	logger *zap.Logger
}

var _ slogcall.EnabledSink = (*Sink)(nil)

// NewSink returns a sink writing to logger. A nil logger discards records.
func NewSink(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{logger: logger}
}

// Level maps a severity to the zap level it is written at.
func Level(s slogcall.Severity) zapcore.Level {
	switch s {
	case slogcall.SeverityTrace, slogcall.SeverityDebug:
		return zapcore.DebugLevel
	case slogcall.SeverityInformation:
		return zapcore.InfoLevel
	case slogcall.SeverityWarning:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Enabled implements slogcall.EnabledSink.
func (s *Sink) Enabled(_ context.Context, severity slogcall.Severity) bool {
	if severity == slogcall.SeverityNone || !severity.Valid() {
		return false
	}
	return s.logger.Core().Enabled(Level(severity))
}

// Log implements slogcall.Sink.
func (s *Sink) Log(ctx context.Context, severity slogcall.Severity, template string, values ...any) {
	if severity == slogcall.SeverityNone || !severity.Valid() {
		return
	}
	ce := s.logger.Check(Level(severity), slogcall.RenderTemplate(template, values))
	if ce == nil {
		return
	}

	names := slogcall.Placeholders(template)
	fields := make([]zap.Field, 0, len(values)+4)
	fields = append(fields,
		zap.String(SeverityKey, severity.String()),
		zap.String(slogcall.TemplateKey, template),
	)
	for i, v := range values {
		key := "arg" + strconv.Itoa(i)
		if i < len(names) && names[i] != "" {
			key = names[i]
		}
		fields = append(fields, field(key, v))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String(TraceIDKey, sc.TraceID().String()),
			zap.String(SpanIDKey, sc.SpanID().String()),
		)
	}
	ce.Write(fields...)
}

// field encodes a single substitution value.
func field(key string, v any) zap.Field {
	switch x := v.(type) {
	case nil:
		return zap.Skip()
	case slogcall.Argument:
		return zap.Object(key, argument(x))
	case error:
		return zap.NamedError(key, x)
	default:
		return zap.Any(key, x)
	}
}

type argument slogcall.Argument

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (a argument) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("ArgumentType", a.Type)
	enc.AddString("Value", a.Value)
	return nil
}
