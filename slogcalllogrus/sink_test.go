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

package slogcalllogrus

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogcall"
)

// TestLevelMapping maps every severity and folds Critical into Error.
func TestLevelMapping(t *testing.T) {
	t.Parallel()

	cases := map[slogcall.Severity]logrus.Level{
		slogcall.SeverityTrace:       logrus.TraceLevel,
		slogcall.SeverityDebug:       logrus.DebugLevel,
		slogcall.SeverityInformation: logrus.InfoLevel,
		slogcall.SeverityWarning:     logrus.WarnLevel,
		slogcall.SeverityError:       logrus.ErrorLevel,
		slogcall.SeverityCritical:    logrus.ErrorLevel,
	}
	for severity, want := range cases {
		assert.Equal(t, want, Level(severity), severity.String())
	}
}

// TestSinkWritesFields records the rendered message with one field per placeholder.
func TestSinkWritesFields(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	sink := NewSink(logger)

	sink.Log(context.Background(), slogcall.SeverityWarning, "{Method} took {ElapsedMilliseconds}ms", "Svc.Op", int64(12))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Svc.Op took 12ms", entry.Message)
	assert.Equal(t, "Warning", entry.Data[SeverityKey])
	assert.Equal(t, "Svc.Op", entry.Data["Method"])
	assert.Equal(t, int64(12), entry.Data["ElapsedMilliseconds"])
	assert.Equal(t, "{Method} took {ElapsedMilliseconds}ms", entry.Data[slogcall.TemplateKey])
}

// TestSinkRespectsLevel drops records below the logger level.
func TestSinkRespectsLevel(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	sink := NewSink(logger)
	ctx := context.Background()

	assert.False(t, sink.Enabled(ctx, slogcall.SeverityDebug))
	assert.True(t, sink.Enabled(ctx, slogcall.SeverityCritical))
	assert.False(t, sink.Enabled(ctx, slogcall.SeverityNone))

	sink.Log(ctx, slogcall.SeverityTrace, "dropped")
	sink.Log(ctx, slogcall.Severity(99), "dropped")
	assert.Empty(t, hook.AllEntries())
}

// TestSinkJSONArguments serializes complex arguments with their JSON tags.
func TestSinkJSONArguments(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	NewSink(logger).Log(context.Background(), slogcall.SeverityInformation, "{request}",
		slogcall.Argument{Type: "orders.Order", Value: `{"id":1}`})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, map[string]any{"ArgumentType": "orders.Order", "Value": `{"id":1}`}, decoded["request"])
	assert.Equal(t, "info", decoded["level"])
}

// TestTraceHook copies span identifiers from the entry context.
func TestTraceHook(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	logger.AddHook(TraceHook{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	NewSink(logger).Log(ctx, slogcall.SeverityError, "failed")
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, traceID.String(), entry.Data[TraceIDKey])
	assert.Equal(t, spanID.String(), entry.Data[SpanIDKey])
	assert.Equal(t, true, entry.Data[TraceSampledKey])

	logger.WithContext(context.Background()).Info("no span")
	assert.NotContains(t, hook.LastEntry().Data, TraceIDKey)
}
