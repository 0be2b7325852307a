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

// Package slogcalllogrus adapts a *logrus.Logger to slogcall.Sink.
//
// Severities map onto logrus levels one-to-one except Critical, which is
// written at Error because logrus reserves Fatal and Panic for levels that
// terminate the caller. The exact severity is kept in the "severity" field.
package slogcalllogrus

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogcall"
)

// Field keys added to every record besides the placeholders.
const (
	SeverityKey     = "severity"
	TraceIDKey      = "trace_id"
	SpanIDKey       = "span_id"
	TraceSampledKey = "trace_sampled"
)

// Sink writes slogcall records to a logrus logger.
type Sink struct {
	logger *logrus.Logger
}

var _ slogcall.EnabledSink = (*Sink)(nil)

// NewSink returns a sink writing to logger, or to logrus.StandardLogger()
// when logger is nil.
func NewSink(logger *logrus.Logger) *Sink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sink{logger: logger}
}

// Level maps a severity to the logrus level it is written at.
func Level(s slogcall.Severity) logrus.Level {
	switch s {
	case slogcall.SeverityTrace:
		return logrus.TraceLevel
	case slogcall.SeverityDebug:
		return logrus.DebugLevel
	case slogcall.SeverityInformation:
		return logrus.InfoLevel
	case slogcall.SeverityWarning:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

// Enabled implements slogcall.EnabledSink.
func (s *Sink) Enabled(_ context.Context, severity slogcall.Severity) bool {
	if severity == slogcall.SeverityNone || !severity.Valid() {
		return false
	}
	return s.logger.IsLevelEnabled(Level(severity))
}

// Log implements slogcall.Sink.
func (s *Sink) Log(ctx context.Context, severity slogcall.Severity, template string, values ...any) {
	if !s.Enabled(ctx, severity) {
		return
	}

	names := slogcall.Placeholders(template)
	fields := make(logrus.Fields, len(values)+2)
	fields[SeverityKey] = severity.String()
	fields[slogcall.TemplateKey] = template
	for i, v := range values {
		key := "arg" + strconv.Itoa(i)
		if i < len(names) && names[i] != "" {
			key = names[i]
		}
		fields[key] = v
	}

	s.logger.WithContext(ctx).WithFields(fields).Log(Level(severity), slogcall.RenderTemplate(template, values))
}

// TraceHook adds the identifiers of the span carried by an entry's context.
// Install it with logger.AddHook to correlate every logrus entry, not only
// slogcall records.
type TraceHook struct{}

var _ logrus.Hook = TraceHook{}

// Levels implements logrus.Hook.
func (TraceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (TraceHook) Fire(entry *logrus.Entry) error {
	if entry.Context == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(entry.Context)
	if !sc.IsValid() {
		return nil
	}
	entry.Data[TraceIDKey] = sc.TraceID().String()
	entry.Data[SpanIDKey] = sc.SpanID().String()
	if sc.IsSampled() {
		entry.Data[TraceSampledKey] = true
	}
	return nil
}
