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

// Package greeting is a small service used by the demo command to show
// intercepted calls end to end.
package greeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pjscruggs/slogcall/result"
)

// ErrUnknownAccount is returned for account ids the service does not hold.
var ErrUnknownAccount = errors.New("greeting: unknown account")

// Account is a registered user.
type Account struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
	Token   string          `json:"token" slogcall:"exclude"`
}

// Greeter is the intercepted contract.
type Greeter interface {
	Greet(ctx context.Context, name string) result.Result[string]
	Login(ctx context.Context, user, password string) (bool, error)
	Account(ctx context.Context, id uuid.UUID) (*Account, error)
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) result.Result[decimal.Decimal]
}

// Service is the in-memory Greeter implementation.
type Service struct {
	mu        sync.Mutex
	passwords map[string]string
	accounts  map[uuid.UUID]*Account
}

// NewService returns a service holding the given user/password pairs.
func NewService(passwords map[string]string) *Service {
	s := &Service{
		passwords: make(map[string]string, len(passwords)),
		accounts:  make(map[uuid.UUID]*Account),
	}
	for user, password := range passwords {
		s.passwords[user] = password
	}
	return s
}

// Open adds an account and returns it.
func (s *Service) Open(name string, balance decimal.Decimal) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := &Account{ID: uuid.New(), Name: name, Balance: balance, Token: uuid.NewString()}
	s.accounts[acct.ID] = acct
	return acct
}

// Greet returns a greeting, or a domain error for a blank name.
func (s *Service) Greet(_ context.Context, name string) result.Result[string] {
	name = strings.TrimSpace(name)
	if name == "" {
		return result.DomainError[string](result.ErrorMessage{Field: "name", Message: "name is required"})
	}
	return result.Success("Hello " + name)
}

// Login reports whether password matches the one registered for user.
func (s *Service) Login(_ context.Context, user, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.passwords[user]
	return ok && want == password, nil
}

// Account returns a copy of the account with the given id.
func (s *Service) Account(_ context.Context, id uuid.UUID) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, id)
	}
	cp := *acct
	return &cp, nil
}

// Credit adds amount to the account balance and returns the new balance.
// Non-positive amounts are rejected as domain errors; unknown accounts are
// faults.
func (s *Service) Credit(_ context.Context, id uuid.UUID, amount decimal.Decimal) result.Result[decimal.Decimal] {
	if !amount.IsPositive() {
		return result.DomainError[decimal.Decimal](result.ErrorMessage{Field: "amount", Message: "amount must be positive"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return result.Fault[decimal.Decimal](fmt.Errorf("credit: %w: %s", ErrUnknownAccount, id))
	}
	acct.Balance = acct.Balance.Add(amount)
	return result.Success(acct.Balance)
}
