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

// Package slogcallconfig loads interceptor settings from a YAML file and
// keeps contract severities in sync with it.
//
// A file looks like:
//
//	defaultSeverity: information
//	failureMode: propagate
//	maxValueSize: 4096
//	contracts:
//	  greeting.Greeter: debug
//	  example.com/billing.Ledger: none
package slogcallconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pjscruggs/slogcall"
)

// Config mirrors the YAML file. Zero values mean "not set".
type Config struct {
	DefaultSeverity string            `yaml:"defaultSeverity"`
	FailureSeverity string            `yaml:"failureSeverity"`
	FailureMode     string            `yaml:"failureMode"`
	MaxValueSize    int               `yaml:"maxValueSize"`
	Contracts       map[string]string `yaml:"contracts"`
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every severity and the failure mode.
func (c *Config) Validate() error {
	var errs []error
	if _, err := parseOptional(c.DefaultSeverity); err != nil {
		errs = append(errs, fmt.Errorf("defaultSeverity: %w", err))
	}
	if _, err := parseOptional(c.FailureSeverity); err != nil {
		errs = append(errs, fmt.Errorf("failureSeverity: %w", err))
	}
	if c.FailureMode != "" {
		if _, err := slogcall.ParseFailureMode(c.FailureMode); err != nil {
			errs = append(errs, fmt.Errorf("failureMode: %w", err))
		}
	}
	if c.MaxValueSize < 0 {
		errs = append(errs, fmt.Errorf("maxValueSize: must not be negative"))
	}
	if _, err := c.Severities(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Severities returns the contracts table with parsed severities.
func (c *Config) Severities() (map[string]slogcall.Severity, error) {
	out := make(map[string]slogcall.Severity, len(c.Contracts))
	var errs []error
	for name, value := range c.Contracts {
		name = strings.TrimSpace(name)
		if name == "" {
			errs = append(errs, fmt.Errorf("contracts: empty contract name"))
			continue
		}
		s, err := slogcall.ParseSeverity(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("contracts[%s]: %w", name, err))
			continue
		}
		out[name] = s
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Options converts the file's interceptor settings into options for
// slogcall.New. Unset keys produce no option so environment defaults apply.
func (c *Config) Options() ([]slogcall.Option, error) {
	var opts []slogcall.Option
	if s, err := parseOptional(c.DefaultSeverity); err != nil {
		return nil, fmt.Errorf("defaultSeverity: %w", err)
	} else if s != nil {
		opts = append(opts, slogcall.WithDefaultSeverity(*s))
	}
	if s, err := parseOptional(c.FailureSeverity); err != nil {
		return nil, fmt.Errorf("failureSeverity: %w", err)
	} else if s != nil {
		opts = append(opts, slogcall.WithFailureSeverity(*s))
	}
	if c.FailureMode != "" {
		mode, err := slogcall.ParseFailureMode(c.FailureMode)
		if err != nil {
			return nil, fmt.Errorf("failureMode: %w", err)
		}
		opts = append(opts, slogcall.WithFailureMode(mode))
	}
	if c.MaxValueSize > 0 {
		opts = append(opts, slogcall.WithMaxValueSize(c.MaxValueSize))
	}
	return opts, nil
}

// Apply replaces the resolver's name-keyed severities with the contracts
// table. Type-keyed entries set in code are left alone.
func (c *Config) Apply(resolver *slogcall.SeverityResolver) error {
	if resolver == nil {
		return fmt.Errorf("apply config: nil resolver")
	}
	table, err := c.Severities()
	if err != nil {
		return err
	}
	return resolver.ReplaceNames(table)
}

func parseOptional(value string) (*slogcall.Severity, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	s, err := slogcall.ParseSeverity(value)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
