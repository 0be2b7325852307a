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
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/pjscruggs/slogcall"
	"github.com/pjscruggs/slogcall/internal/greeting"
)

func newGreetCommand(load func() settings) *cobra.Command {
	return &cobra.Command{
		Use:   "greet NAME...",
		Short: "Greet each name and exercise the other service calls once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ic, _, err := buildInterceptor(load(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runGreet(cmd.Context(), ic, cmd.OutOrStdout(), args)
		},
	}
}

// newGreeter registers the demo service with a registry built on ic.
func newGreeter(ic *slogcall.Interceptor, svc *greeting.Service) (greeting.Greeter, error) {
	reg := slogcall.NewRegistry(ic)
	if err := reg.Attach(greeting.Attacher{Service: svc}); err != nil {
		return nil, err
	}
	return slogcall.Resolve[greeting.Greeter](reg)
}

func runGreet(ctx context.Context, ic *slogcall.Interceptor, out io.Writer, names []string) error {
	svc := greeting.NewService(map[string]string{"demo": "demo"})
	acct := svc.Open("demo", decimal.NewFromInt(100))
	g, err := newGreeter(ic, svc)
	if err != nil {
		return err
	}

	ctx = slogcall.ContextWithCorrelationID(ctx, uuid.NewString())
	for _, name := range names {
		msg := g.Greet(ctx, name)
		if v, ok := msg.Value(); ok {
			fmt.Fprintln(out, v)
		} else {
			fmt.Fprintln(out, msg)
		}
	}
	if _, err := g.Login(ctx, "demo", "demo"); err != nil {
		return err
	}
	g.Credit(ctx, acct.ID, decimal.RequireFromString("12.50"))
	if _, err := g.Account(ctx, acct.ID); err != nil {
		return err
	}
	return nil
}
