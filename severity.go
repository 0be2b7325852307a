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
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ErrUnsupportedSeverity indicates a Severity outside the defined set. It
// signals a mismatch between configuration and the levels a sink accepts.
var ErrUnsupportedSeverity = errors.New("slogcall: unsupported severity")

// Severity is the importance attached to the record of an intercepted call.
// The values are ordered from least to most important, followed by
// SeverityNone which suppresses emission entirely.
type Severity int

const (
	// SeverityTrace maps to slog level -8.
	SeverityTrace Severity = iota
	// SeverityDebug maps to slog.LevelDebug.
	SeverityDebug
	// SeverityInformation maps to slog.LevelInfo. It is the process default.
	SeverityInformation
	// SeverityWarning maps to slog.LevelWarn.
	SeverityWarning
	// SeverityError maps to slog.LevelError.
	SeverityError
	// SeverityCritical maps to slog level 12, above Error.
	SeverityCritical
	// SeverityNone disables emission.
	SeverityNone
)

// Slog levels used for the severities slog does not define.
const (
	LevelTrace    slog.Level = -8
	LevelCritical slog.Level = 12

	levelOff = slog.Level(math.MaxInt32)
)

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	return s >= SeverityTrace && s <= SeverityNone
}

// String returns the canonical severity name.
func (s Severity) String() string {
	switch s {
	case SeverityTrace:
		return "Trace"
	case SeverityDebug:
		return "Debug"
	case SeverityInformation:
		return "Information"
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	case SeverityCritical:
		return "Critical"
	case SeverityNone:
		return "None"
	default:
		return "Severity(" + strconv.Itoa(int(s)) + ")"
	}
}

// Level returns the slog level for s, satisfying slog.Leveler. SeverityNone
// and unsupported values map above every real level so a handler never
// enables them.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityTrace:
		return LevelTrace
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityInformation:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	case SeverityCritical:
		return LevelCritical
	default:
		return levelOff
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSeverity, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseSeverity.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a case-insensitive severity name or common alias
// ("info", "warn", "fatal", "off") into a Severity.
func ParseSeverity(value string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace", "verbose":
		return SeverityTrace, nil
	case "debug":
		return SeverityDebug, nil
	case "information", "info":
		return SeverityInformation, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	case "critical", "fatal":
		return SeverityCritical, nil
	case "none", "off":
		return SeverityNone, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedSeverity, value)
	}
}

// validateSeverity wraps ErrUnsupportedSeverity for values outside the set.
func validateSeverity(s Severity) error {
	if s.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnsupportedSeverity, int(s))
}
