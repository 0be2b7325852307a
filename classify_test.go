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
	"database/sql"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type orderStatus int

type currencyCode string

type address struct {
	Street string
}

// TestIsSimple classifies representative simple and complex values.
func TestIsSimple(t *testing.T) {
	t.Parallel()

	name := "ann"
	var nilName *string

	simple := map[string]any{
		"bool":        true,
		"int":         42,
		"int8":        int8(-1),
		"uint64":      uint64(7),
		"float32":     float32(1.5),
		"complex":     complex(1, 2),
		"rune":        'x',
		"byte":        byte(1),
		"string":      "hi",
		"enum":        orderStatus(2),
		"named str":   currencyCode("EUR"),
		"time":        time.Now(),
		"duration":    time.Second,
		"month":       time.March,
		"uuid":        uuid.New(),
		"decimal":     decimal.RequireFromString("10.25"),
		"big int":     big.NewInt(10),
		"big float":   big.NewFloat(1.5),
		"big rat":     big.NewRat(1, 3),
		"pointer":     &name,
		"nil pointer": nilName,
		"null string": sql.NullString{String: "x", Valid: true},
		"null time":   sql.NullTime{},
		"null uuid":   uuid.NullUUID{UUID: uuid.New(), Valid: true},
		"null dec":    decimal.NullDecimal{Decimal: decimal.NewFromInt(1), Valid: true},
		"nil":         nil,
	}
	for label, v := range simple {
		if !IsSimple(v) {
			t.Errorf("IsSimple(%s) = false, want true", label)
		}
	}

	complexValues := map[string]any{
		"struct":   address{Street: "Main"},
		"ptr":      &address{},
		"slice":    []int{1},
		"map":      map[string]int{},
		"bytes":    []byte("x"),
		"location": time.UTC,
		"func":     func() {},
		"chan":     make(chan int),
		"array":    [2]string{"a", "b"},
	}
	for label, v := range complexValues {
		if IsSimple(v) {
			t.Errorf("IsSimple(%s) = true, want false", label)
		}
	}
}

// TestSimpleValueUnwraps ensures pointers and nullable wrappers log their inner value.
func TestSimpleValueUnwraps(t *testing.T) {
	t.Parallel()

	count := 3
	if got, _ := simpleValue(&count); got != 3 {
		t.Errorf("simpleValue(&count) = %v", got)
	}
	if got, _ := simpleValue(sql.NullInt64{Int64: 9, Valid: true}); got != int64(9) {
		t.Errorf("simpleValue(NullInt64) = %v", got)
	}
	if got, ok := simpleValue(sql.NullBool{}); got != nil || !ok {
		t.Errorf("simpleValue(invalid NullBool) = %v, %v", got, ok)
	}
	if got, _ := simpleValue(orderStatus(1)); got != orderStatus(1) {
		t.Errorf("simpleValue(enum) = %#v, want unchanged", got)
	}
}

// TestIsAbsent distinguishes nil values from zero values.
func TestIsAbsent(t *testing.T) {
	t.Parallel()

	var nilSlice []int
	var nilMap map[string]int
	var nilPtr *address
	var nilErr error

	for _, v := range []any{nil, nilSlice, nilMap, nilPtr, nilErr} {
		if !isAbsent(v) {
			t.Errorf("isAbsent(%#v) = false", v)
		}
	}
	for _, v := range []any{0, "", address{}, []int{}, false} {
		if isAbsent(v) {
			t.Errorf("isAbsent(%#v) = true", v)
		}
	}
}
