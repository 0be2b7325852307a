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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pjscruggs/slogcall"
	"github.com/pjscruggs/slogcall/slogcallconfig"
	"github.com/pjscruggs/slogcall/slogcalllogrus"
	"github.com/pjscruggs/slogcall/slogcallzap"
)

const envPrefix = "SLOGCALL_DEMO"

// settings are the resolved flag, environment and file values.
type settings struct {
	ConfigFile  string
	Sink        string
	Level       string
	FailureMode string
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "slogcall-demo",
		Short:         "Run a greeting service with intercepted call logging",
		Version:       slogcall.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML file with interceptor settings and contract severities")
	flags.String("sink", "slog", "log backend: slog, zap or logrus")
	flags.String("level", "debug", "minimum level written by the log backend")
	flags.String("failure-mode", "", "propagate or swallow implementation failures")

	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("sink", flags.Lookup("sink"))
	_ = v.BindPFlag("level", flags.Lookup("level"))
	_ = v.BindPFlag("failure_mode", flags.Lookup("failure-mode"))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	load := func() settings {
		return settings{
			ConfigFile:  v.GetString("config"),
			Sink:        v.GetString("sink"),
			Level:       v.GetString("level"),
			FailureMode: v.GetString("failure_mode"),
		}
	}

	root.AddCommand(newGreetCommand(load), newServeCommand(load))
	return root
}

// buildInterceptor creates the sink selected by s writing to w and an
// interceptor configured from the optional YAML file. Flag values override
// the file.
func buildInterceptor(s settings, w io.Writer) (*slogcall.Interceptor, *slog.Logger, error) {
	level, err := slogcall.ParseSeverity(s.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("--level: %w", err)
	}

	diagnostics := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var opts []slogcall.Option
	var cfg *slogcallconfig.Config
	if s.ConfigFile != "" {
		cfg, err = slogcallconfig.Load(s.ConfigFile)
		if err != nil {
			return nil, nil, err
		}
		fileOpts, err := cfg.Options()
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, fileOpts...)
	}
	if s.FailureMode != "" {
		mode, err := slogcall.ParseFailureMode(s.FailureMode)
		if err != nil {
			return nil, nil, fmt.Errorf("--failure-mode: %w", err)
		}
		opts = append(opts, slogcall.WithFailureMode(mode))
	}
	opts = append(opts, slogcall.WithInternalLogger(diagnostics))

	sink, err := newSink(s.Sink, level, w)
	if err != nil {
		return nil, nil, err
	}
	ic, err := slogcall.New(sink, opts...)
	if err != nil {
		return nil, nil, err
	}
	if cfg != nil {
		if err := cfg.Apply(ic.Resolver()); err != nil {
			return nil, nil, err
		}
	}
	return ic, diagnostics, nil
}

func newSink(name string, level slogcall.Severity, w io.Writer) (slogcall.Sink, error) {
	switch strings.ToLower(name) {
	case "", "slog":
		handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.Level()})
		return slogcall.NewSlogSink(slog.New(handler)), nil
	case "zap":
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			slogcallzap.Level(level),
		)
		return slogcallzap.NewSink(zap.New(core)), nil
	case "logrus":
		logger := logrus.New()
		logger.SetOutput(w)
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(slogcalllogrus.Level(level))
		logger.AddHook(slogcalllogrus.TraceHook{})
		return slogcalllogrus.NewSink(logger), nil
	default:
		return nil, fmt.Errorf("--sink: unknown backend %q", name)
	}
}
