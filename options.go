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
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

const (
	envDefaultSeverity = "SLOGCALL_DEFAULT_SEVERITY"
	envFailureMode     = "SLOGCALL_FAILURE_MODE"
	envFailureSeverity = "SLOGCALL_FAILURE_SEVERITY"
	envMaxValueSize    = "SLOGCALL_MAX_VALUE_SIZE"
)

var (
	// ErrInvalidFailureMode indicates an unknown FailureMode value.
	ErrInvalidFailureMode = errors.New("slogcall: invalid failure mode")

	interceptorEnvConfigCache atomic.Pointer[interceptorConfig]
)

// FailureMode decides what the caller of a wrapper observes when the wrapped
// implementation fails. The failure is logged in both modes.
type FailureMode int

const (
	// FailurePropagate returns the implementation's error, or re-raises its
	// panic, after logging.
	FailurePropagate FailureMode = iota
	// FailureSwallow completes the call as if it had succeeded: errors are
	// replaced with nil and panics are recovered, and the caller receives
	// whatever result value the implementation produced.
	FailureSwallow
)

// String returns the mode name.
func (m FailureMode) String() string {
	switch m {
	case FailurePropagate:
		return "propagate"
	case FailureSwallow:
		return "swallow"
	default:
		return "FailureMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseFailureMode converts "propagate" or "swallow" into a FailureMode.
func ParseFailureMode(value string) (FailureMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "propagate":
		return FailurePropagate, nil
	case "swallow":
		return FailureSwallow, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFailureMode, value)
	}
}

// Option configures an Interceptor built by New.
//
// Options follow the functional options pattern and are applied in the order
// they are provided, after environment overrides.
type Option func(*options)

type options struct {
	defaultSeverity *Severity
	failureMode     *FailureMode
	failureSeverity *Severity
	maxValueSize    *int
	correlation     CorrelationProvider
	resolver        *SeverityResolver
	internalLogger  *slog.Logger
}

type interceptorConfig struct {
	DefaultSeverity Severity
	FailureMode     FailureMode
	FailureSeverity Severity
	MaxValueSize    int
}

// WithDefaultSeverity sets the severity of contracts without their own
// entry. It overrides SLOGCALL_DEFAULT_SEVERITY. Ignored when
// WithSeverityResolver supplies a resolver.
func WithDefaultSeverity(s Severity) Option {
	return func(o *options) {
		o.defaultSeverity = &s
	}
}

// WithFailureMode selects whether implementation failures reach the caller.
// It overrides SLOGCALL_FAILURE_MODE. The default is FailurePropagate.
func WithFailureMode(m FailureMode) Option {
	return func(o *options) {
		o.failureMode = &m
	}
}

// WithFailureSeverity sets the severity of the immediate record written when
// an implementation fails. The default is SeverityCritical.
func WithFailureSeverity(s Severity) Option {
	return func(o *options) {
		o.failureSeverity = &s
	}
}

// WithMaxValueSize truncates serialized arguments and results longer than n
// bytes. Zero disables truncation.
func WithMaxValueSize(n int) Option {
	return func(o *options) {
		o.maxValueSize = &n
	}
}

// WithCorrelationProvider replaces DefaultCorrelation as the source of
// correlation identifiers.
func WithCorrelationProvider(p CorrelationProvider) Option {
	return func(o *options) {
		o.correlation = p
	}
}

// WithSeverityResolver shares resolver between interceptors or with a
// configuration watcher.
func WithSeverityResolver(resolver *SeverityResolver) Option {
	return func(o *options) {
		o.resolver = resolver
	}
}

// WithInternalLogger sets the logger used for slogcall's own diagnostics,
// such as serialization failures or sink panics. Diagnostics are discarded
// by default.
func WithInternalLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.internalLogger = logger
	}
}

// applyOptions merges user-supplied options into the environment-derived
// configuration and validates the result.
func applyOptions(cfg *interceptorConfig, o *options) error {
	if o.defaultSeverity != nil {
		cfg.DefaultSeverity = *o.defaultSeverity
	}
	if o.failureMode != nil {
		cfg.FailureMode = *o.failureMode
	}
	if o.failureSeverity != nil {
		cfg.FailureSeverity = *o.failureSeverity
	}
	if o.maxValueSize != nil {
		cfg.MaxValueSize = *o.maxValueSize
	}

	if err := validateSeverity(cfg.DefaultSeverity); err != nil {
		return fmt.Errorf("default severity: %w", err)
	}
	if err := validateSeverity(cfg.FailureSeverity); err != nil {
		return fmt.Errorf("failure severity: %w", err)
	}
	if cfg.FailureMode != FailurePropagate && cfg.FailureMode != FailureSwallow {
		return fmt.Errorf("%w: %d", ErrInvalidFailureMode, int(cfg.FailureMode))
	}
	if cfg.MaxValueSize < 0 {
		cfg.MaxValueSize = 0
	}
	return nil
}

// cachedConfigFromEnv returns the environment-derived configuration,
// reading the environment only once per process.
func cachedConfigFromEnv(logger *slog.Logger) interceptorConfig {
	if cached := interceptorEnvConfigCache.Load(); cached != nil {
		return *cached
	}
	cfg := loadConfigFromEnv(logger)
	entry := new(interceptorConfig)
	*entry = cfg
	if interceptorEnvConfigCache.CompareAndSwap(nil, entry) {
		return cfg
	}
	return *interceptorEnvConfigCache.Load()
}

// resetConfigCache forces the next interceptor to re-read the environment.
func resetConfigCache() {
	interceptorEnvConfigCache.Store(nil)
}

// loadConfigFromEnv reads configuration overrides from environment
// variables, keeping defaults for values that fail validation.
func loadConfigFromEnv(logger *slog.Logger) interceptorConfig {
	cfg := interceptorConfig{
		DefaultSeverity: SeverityInformation,
		FailureMode:     FailurePropagate,
		FailureSeverity: SeverityCritical,
	}

	cfg.DefaultSeverity = parseSeverityEnv(envDefaultSeverity, cfg.DefaultSeverity, logger)
	cfg.FailureSeverity = parseSeverityEnv(envFailureSeverity, cfg.FailureSeverity, logger)

	if value := strings.TrimSpace(os.Getenv(envFailureMode)); value != "" {
		mode, err := ParseFailureMode(value)
		if err != nil {
			logDiagnostic(logger, slog.LevelWarn, "invalid failure mode environment variable", slog.String("value", value))
		} else {
			cfg.FailureMode = mode
		}
	}

	if value := strings.TrimSpace(os.Getenv(envMaxValueSize)); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			logDiagnostic(logger, slog.LevelWarn, "invalid max value size environment variable", slog.String("value", value))
		} else {
			cfg.MaxValueSize = n
		}
	}

	return cfg
}

// parseSeverityEnv parses a severity environment variable, retaining
// current on failure.
func parseSeverityEnv(variable string, current Severity, logger *slog.Logger) Severity {
	value := strings.TrimSpace(os.Getenv(variable))
	if value == "" {
		return current
	}
	s, err := ParseSeverity(value)
	if err != nil {
		logDiagnostic(logger, slog.LevelWarn, "invalid severity environment variable",
			slog.String("variable", variable), slog.String("value", value))
		return current
	}
	return s
}

// logDiagnostic emits internal diagnostic messages, guarding against nil
// loggers in tests.
func logDiagnostic(logger *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}
