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
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjscruggs/slogcall"
	"github.com/pjscruggs/slogcall/slogcalltest"
)

func newRegistry(t *testing.T, svc *Service, opts ...slogcall.RegisterOption) (Greeter, *slogcalltest.Recorder) {
	t.Helper()

	rec := &slogcalltest.Recorder{}
	ic, err := slogcall.New(rec)
	require.NoError(t, err)
	reg := slogcall.NewRegistry(ic)
	require.NoError(t, reg.Attach(Attacher{Service: svc, Options: opts}))
	g, err := slogcall.Resolve[Greeter](reg)
	require.NoError(t, err)
	return g, rec
}

// TestGreet logs the success payload and the name argument.
func TestGreet(t *testing.T) {
	t.Parallel()

	g, rec := newRegistry(t, NewService(nil))
	got := g.Greet(context.Background(), "Ann")
	v, ok := got.Value()
	require.True(t, ok)
	assert.Equal(t, "Hello Ann", v)

	entry, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, slogcall.SeverityInformation, entry.Severity)
	method, _ := entry.Value(slogcall.KeyMethod)
	assert.Equal(t, "Service.Greet", method)
	name, _ := entry.Value("name")
	assert.Equal(t, "Ann", name)
	ret, _ := entry.Value(slogcall.KeyReturnValue)
	assert.Equal(t, "Hello Ann", ret)
}

// TestGreetBlankName serializes the domain errors as the return value.
func TestGreetBlankName(t *testing.T) {
	t.Parallel()

	g, rec := newRegistry(t, NewService(nil))
	got := g.Greet(context.Background(), "  ")
	assert.True(t, got.IsDomainError())

	entry, ok := rec.Last()
	require.True(t, ok)
	ret, _ := entry.Value(slogcall.KeyReturnValue)
	assert.Contains(t, ret, "name is required")
}

// TestLoginExcludesPassword never records the password.
func TestLoginExcludesPassword(t *testing.T) {
	t.Parallel()

	g, rec := newRegistry(t, NewService(map[string]string{"bob": "hunter2"}))
	ok, err := g.Login(context.Background(), "bob", "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	entry, found := rec.Last()
	require.True(t, found)
	password, _ := entry.Value("password")
	assert.Equal(t, slogcall.ExcludedPlaceholder, password)
	assert.NotContains(t, entry.Rendered(), "hunter2")
	ret, _ := entry.Value(slogcall.KeyReturnValue)
	assert.Equal(t, true, ret)
}

// TestAccountOmitsToken serializes the account without its token field.
func TestAccountOmitsToken(t *testing.T) {
	t.Parallel()

	svc := NewService(nil)
	acct := svc.Open("Ann", decimal.RequireFromString("10.50"))
	g, rec := newRegistry(t, svc)

	got, err := g.Account(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, acct.Token, got.Token)

	entry, ok := rec.Last()
	require.True(t, ok)
	id, _ := entry.Value("id")
	assert.Equal(t, acct.ID, id)
	ret, _ := entry.Value(slogcall.KeyReturnValue)
	text, isString := ret.(string)
	require.True(t, isString, "return value %T", ret)
	assert.Contains(t, text, `"name":"Ann"`)
	assert.Contains(t, text, `"balance":"10.5"`)
	assert.NotContains(t, text, acct.Token)
	assert.NotContains(t, text, "token")
}

// TestAccountUnknown propagates the error and logs a failure record first.
func TestAccountUnknown(t *testing.T) {
	t.Parallel()

	g, rec := newRegistry(t, NewService(nil))
	_, err := g.Account(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, ErrUnknownAccount)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, slogcall.SeverityCritical, entries[0].Severity)
	assert.True(t, strings.HasPrefix(entries[0].Rendered(), "Intercepted call failed - Method: Service.Account"))
}

// TestCredit covers the three envelope states.
func TestCredit(t *testing.T) {
	t.Parallel()

	svc := NewService(nil)
	acct := svc.Open("Ann", decimal.NewFromInt(5))
	g, rec := newRegistry(t, svc, slogcall.WithSeverity(slogcall.SeverityWarning))
	ctx := context.Background()

	balance, ok := g.Credit(ctx, acct.ID, decimal.RequireFromString("2.25")).Value()
	require.True(t, ok)
	assert.True(t, balance.Equal(decimal.RequireFromString("7.25")))
	entry, _ := rec.Last()
	assert.Equal(t, slogcall.SeverityWarning, entry.Severity)
	ret, _ := entry.Value(slogcall.KeyReturnValue)
	assert.Equal(t, balance, ret)

	assert.True(t, g.Credit(ctx, acct.ID, decimal.Zero).IsDomainError())
	entry, _ = rec.Last()
	ret, _ = entry.Value(slogcall.KeyReturnValue)
	assert.Contains(t, ret, "amount must be positive")

	assert.True(t, g.Credit(ctx, uuid.New(), decimal.NewFromInt(1)).IsFault())
	entry, _ = rec.Last()
	ret, _ = entry.Value(slogcall.KeyReturnValue)
	assert.Contains(t, ret, "unknown account")
}
