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

package greeting

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pjscruggs/slogcall"
	"github.com/pjscruggs/slogcall/result"
)

var (
	greetMethod   = slogcall.NewMethod("Greet", slogcall.Param("name"))
	loginMethod   = slogcall.NewMethod("Login", slogcall.Param("user"), slogcall.ExcludedParam("password"))
	accountMethod = slogcall.NewMethod("Account", slogcall.Param("id"))
	creditMethod  = slogcall.NewMethod("Credit", slogcall.Param("id"), slogcall.Param("amount"))
)

// logged routes Greeter calls through a slogcall.Target.
type logged struct {
	next   Greeter
	target *slogcall.Target
}

// Wrap decorates next so every call is logged through t.
func Wrap(next Greeter, t *slogcall.Target) Greeter {
	return logged{next: next, target: t}
}

func (l logged) Greet(ctx context.Context, name string) result.Result[string] {
	return slogcall.Call(ctx, l.target, greetMethod, []any{name}, func() result.Result[string] {
		return l.next.Greet(ctx, name)
	})
}

func (l logged) Login(ctx context.Context, user, password string) (bool, error) {
	return slogcall.CallErr(ctx, l.target, loginMethod, []any{user, password}, func() (bool, error) {
		return l.next.Login(ctx, user, password)
	})
}

func (l logged) Account(ctx context.Context, id uuid.UUID) (*Account, error) {
	return slogcall.CallErr(ctx, l.target, accountMethod, []any{id}, func() (*Account, error) {
		return l.next.Account(ctx, id)
	})
}

func (l logged) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) result.Result[decimal.Decimal] {
	return slogcall.Call(ctx, l.target, creditMethod, []any{id, amount}, func() result.Result[decimal.Decimal] {
		return l.next.Credit(ctx, id, amount)
	})
}

// Attacher registers Greeter with a registry.
type Attacher struct {
	Service  *Service
	Lifetime slogcall.Lifetime
	Options  []slogcall.RegisterOption
}

var _ slogcall.Attacher = Attacher{}

// Attach implements slogcall.Attacher.
func (a Attacher) Attach(r *slogcall.Registry) error {
	svc := a.Service
	return slogcall.Register(r, a.Lifetime, func() (Greeter, error) {
		if svc == nil {
			return NewService(nil), nil
		}
		return svc, nil
	}, Wrap, a.Options...)
}
