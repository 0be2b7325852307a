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
	"log/slog"
	"strconv"
)

// Sink receives finished records. Implementations own all rendering and
// output; they are given the severity, a template with one named
// placeholder per value, and the values in placeholder order.
type Sink interface {
	Log(ctx context.Context, severity Severity, template string, values ...any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, severity Severity, template string, values ...any)

// Log implements Sink.
func (f SinkFunc) Log(ctx context.Context, severity Severity, template string, values ...any) {
	if f != nil {
		f(ctx, severity, template, values...)
	}
}

// EnabledSink is implemented by sinks that can report cheaply whether a
// severity would be emitted. The interceptor skips argument capture when it
// would not be.
type EnabledSink interface {
	Sink
	Enabled(ctx context.Context, severity Severity) bool
}

// TemplateKey is the attribute holding the unrendered template in records
// written by SlogSink.
const TemplateKey = "messageTemplate"

// SlogSink writes records to a *slog.Logger. The rendered template becomes
// the message and every placeholder becomes an attribute.
type SlogSink struct {
	logger *slog.Logger
}

var _ EnabledSink = (*SlogSink)(nil)

// NewSlogSink returns a sink writing to logger. A nil logger selects the
// logger stored in each call's context, or slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// Enabled implements EnabledSink.
func (s *SlogSink) Enabled(ctx context.Context, severity Severity) bool {
	if severity == SeverityNone || !severity.Valid() {
		return false
	}
	return s.loggerFor(ctx).Enabled(ctx, severity.Level())
}

// Log implements Sink.
func (s *SlogSink) Log(ctx context.Context, severity Severity, template string, values ...any) {
	if severity == SeverityNone || !severity.Valid() {
		return
	}
	logger := s.loggerFor(ctx)
	level := severity.Level()
	if !logger.Enabled(ctx, level) {
		return
	}
	logger.LogAttrs(ctx, level, RenderTemplate(template, values), TemplateAttrs(template, values)...)
}

// loggerFor returns the configured logger or the one carried by ctx.
func (s *SlogSink) loggerFor(ctx context.Context) *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return Logger(ctx)
}

// TemplateAttrs pairs each value with its placeholder name, preceded by the
// template itself. Values without a placeholder are keyed "arg<N>".
func TemplateAttrs(template string, values []any) []slog.Attr {
	names := Placeholders(template)
	attrs := make([]slog.Attr, 0, len(values)+1)
	attrs = append(attrs, slog.String(TemplateKey, template))
	for i, v := range values {
		key := "arg" + strconv.Itoa(i)
		if i < len(names) && names[i] != "" {
			key = names[i]
		}
		attrs = append(attrs, slog.Any(key, v))
	}
	return attrs
}
