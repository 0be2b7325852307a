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

package slogcallasync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/pjscruggs/slogcall"
)

const (
	defaultQueueSize = 1024

	envQueueSize    = "SLOGCALL_ASYNC_QUEUE_SIZE"
	envDropMode     = "SLOGCALL_ASYNC_DROP_MODE"
	envWorkers      = "SLOGCALL_ASYNC_WORKERS"
	envFlushTimeout = "SLOGCALL_ASYNC_FLUSH_TIMEOUT"
)

// DropMode controls what Log does when the queue is full.
type DropMode int

const (
	// DropModeBlock blocks the intercepted call until there is room.
	DropModeBlock DropMode = iota
	// DropModeDropNewest drops the incoming record.
	DropModeDropNewest
	// DropModeDropOldest evicts the oldest queued record.
	DropModeDropOldest
)

// String returns the name accepted by ParseDropMode.
func (m DropMode) String() string {
	switch m {
	case DropModeBlock:
		return "block"
	case DropModeDropNewest:
		return "drop_newest"
	case DropModeDropOldest:
		return "drop_oldest"
	default:
		return "DropMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseDropMode accepts block, drop_newest and drop_oldest (dashes allowed).
func ParseDropMode(value string) (DropMode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_") {
	case "block":
		return DropModeBlock, nil
	case "drop_newest":
		return DropModeDropNewest, nil
	case "drop_oldest":
		return DropModeDropOldest, nil
	default:
		return 0, fmt.Errorf("slogcallasync: unknown drop mode %q", value)
	}
}

// ErrFlushTimeout indicates Close returned before the queue was drained.
var ErrFlushTimeout = errors.New("slogcallasync: flush timeout")

// Entry is a queued record.
type Entry struct {
	Context  context.Context
	Severity slogcall.Severity
	Template string
	Values   []any
}

// DropHandler observes records that were not delivered.
type DropHandler func(Entry)

// Config controls the async sink.
type Config struct {
	QueueSize    int
	WorkerCount  int
	DropMode     DropMode
	OnDrop       DropHandler
	Diagnostics  *slog.Logger
	FlushTimeout time.Duration

	workerStarter func(func())
}

// Option customizes the async sink.
type Option func(*Config)

// WithQueueSize adjusts the queue capacity. Zero yields an unbuffered queue.
func WithQueueSize(size int) Option {
	return func(cfg *Config) {
		cfg.QueueSize = size
	}
}

// WithWorkerCount configures the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(cfg *Config) {
		cfg.WorkerCount = count
	}
}

// WithDropMode sets the queue overflow strategy.
func WithDropMode(mode DropMode) Option {
	return func(cfg *Config) {
		cfg.DropMode = mode
	}
}

// WithOnDrop registers a callback invoked for every dropped record.
func WithOnDrop(fn DropHandler) Option {
	return func(cfg *Config) {
		cfg.OnDrop = fn
	}
}

// WithDiagnostics reports sink panics to logger. Panics are discarded
// silently by default.
func WithDiagnostics(logger *slog.Logger) Option {
	return func(cfg *Config) {
		cfg.Diagnostics = logger
	}
}

// WithFlushTimeout limits how long Close waits for workers to finish.
func WithFlushTimeout(timeout time.Duration) Option {
	return func(cfg *Config) {
		cfg.FlushTimeout = timeout
	}
}

// WithEnv overlays configuration from SLOGCALL_ASYNC_* variables.
func WithEnv() Option {
	return func(cfg *Config) {
		applyEnv(cfg)
	}
}

// Sink is an asynchronous slogcall.Sink.
type Sink struct {
	inner    slogcall.Sink
	dropMode DropMode
	onDrop   DropHandler
	logger   *slog.Logger

	queue        chan Entry
	wg           conc.WaitGroup
	closed       atomic.Bool
	flushTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

var _ slogcall.EnabledSink = (*Sink)(nil)

// Wrap starts the workers and returns a sink delivering to inner.
func Wrap(inner slogcall.Sink, opts ...Option) *Sink {
	cfg := buildConfig(opts)
	logger := cfg.Diagnostics
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Sink{
		inner:        inner,
		dropMode:     cfg.DropMode,
		onDrop:       cfg.OnDrop,
		logger:       logger,
		queue:        make(chan Entry, cfg.QueueSize),
		flushTimeout: cfg.FlushTimeout,
	}

	start := func() {
		for range cfg.WorkerCount {
			s.wg.Go(func() {
				for e := range s.queue {
					s.deliver(e)
				}
			})
		}
	}
	if cfg.workerStarter != nil {
		cfg.workerStarter(start)
	} else {
		start()
	}
	return s
}

// Enabled defers to the inner sink when it can answer.
func (s *Sink) Enabled(ctx context.Context, severity slogcall.Severity) bool {
	if es, ok := s.inner.(slogcall.EnabledSink); ok {
		return es.Enabled(ctx, severity)
	}
	return true
}

// Log queues the record. After Close records are passed to OnDrop.
func (s *Sink) Log(ctx context.Context, severity slogcall.Severity, template string, values ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	e := Entry{
		Context:  context.WithoutCancel(ctx),
		Severity: severity,
		Template: template,
		Values:   append([]any(nil), values...),
	}
	if s.closed.Load() {
		s.drop(e)
		return
	}
	s.enqueue(e)
}

// deliver writes one entry, surviving a panicking inner sink.
func (s *Sink) deliver(e Entry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.LogAttrs(e.Context, slog.LevelError, "slogcallasync: sink panicked",
				slog.Any("panic", r), slog.String("template", e.Template))
		}
	}()
	s.inner.Log(e.Context, e.Severity, e.Template, e.Values...)
}

// enqueue applies the drop policy. Sending races with Close, so a send on
// the closed queue is treated as a drop.
func (s *Sink) enqueue(e Entry) {
	defer func() {
		if recover() != nil {
			s.drop(e)
		}
	}()

	switch s.dropMode {
	case DropModeDropNewest:
		select {
		case s.queue <- e:
		default:
			s.drop(e)
		}
	case DropModeDropOldest:
		select {
		case s.queue <- e:
		default:
			select {
			case evicted := <-s.queue:
				s.drop(evicted)
			default:
			}
			select {
			case s.queue <- e:
			default:
				s.drop(e)
			}
		}
	default:
		s.queue <- e
	}
}

func (s *Sink) drop(e Entry) {
	if s.onDrop != nil {
		s.onDrop(e)
	}
}

// Close stops accepting records, waits for queued ones to be delivered and
// closes the inner sink when it implements io.Closer.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		if s.closed.CompareAndSwap(false, true) {
			close(s.queue)
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		if s.flushTimeout > 0 {
			select {
			case <-done:
			case <-time.After(s.flushTimeout):
				s.closeErr = ErrFlushTimeout
			}
		} else {
			<-done
		}

		if c, ok := s.inner.(io.Closer); ok {
			if err := c.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

// buildConfig applies options over defaults and clamps invalid values.
func buildConfig(opts []Option) Config {
	cfg := Config{
		QueueSize:   defaultQueueSize,
		WorkerCount: 1,
		DropMode:    DropModeBlock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return cfg
}

// applyEnv overlays configuration from environment variables. Unparseable
// values are ignored.
func applyEnv(cfg *Config) {
	if raw := strings.TrimSpace(os.Getenv(envQueueSize)); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil {
			cfg.QueueSize = size
		}
	}
	if raw := strings.TrimSpace(os.Getenv(envWorkers)); raw != "" {
		if workers, err := strconv.Atoi(raw); err == nil {
			cfg.WorkerCount = workers
		}
	}
	if raw := strings.TrimSpace(os.Getenv(envDropMode)); raw != "" {
		if mode, err := ParseDropMode(raw); err == nil {
			cfg.DropMode = mode
		}
	}
	if raw := strings.TrimSpace(os.Getenv(envFlushTimeout)); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.FlushTimeout = d
		}
	}
}
