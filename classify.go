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
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IsSimple reports whether v can be logged as-is rather than serialized.
// Pointers and nullable wrappers (sql.Null*, uuid.NullUUID,
// decimal.NullDecimal) are unwrapped first. Simple values are booleans,
// numbers of any width or precision, strings, named types over those kinds
// (enumerations), time.Time, time.Duration and UUIDs. Absent values are
// simple.
func IsSimple(v any) bool {
	_, ok := simpleValue(v)
	return ok
}

// simpleValue returns the loggable form of v when v is simple. Pointers and
// nullable wrappers are dereferenced; other simple values are returned
// unchanged.
func simpleValue(v any) (any, bool) {
	for {
		if v == nil {
			return nil, true
		}
		if inner, valid, ok := unwrapNullable(v); ok {
			if !valid {
				return nil, true
			}
			v = inner
			continue
		}

		switch v.(type) {
		case time.Time, time.Duration, uuid.UUID, decimal.Decimal,
			*big.Int, *big.Float, *big.Rat, big.Int, big.Float, big.Rat:
			return v, true
		}

		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Bool, reflect.String,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
			return v, true
		case reflect.Pointer:
			if rv.IsNil() {
				return nil, true
			}
			v = rv.Elem().Interface()
		default:
			return nil, false
		}
	}
}

// unwrapNullable recognises the optional wrappers understood by IsSimple.
// ok reports whether v was such a wrapper; valid whether it held a value.
func unwrapNullable(v any) (inner any, valid, ok bool) {
	switch n := v.(type) {
	case sql.NullString:
		return n.String, n.Valid, true
	case sql.NullInt64:
		return n.Int64, n.Valid, true
	case sql.NullInt32:
		return n.Int32, n.Valid, true
	case sql.NullInt16:
		return n.Int16, n.Valid, true
	case sql.NullByte:
		return n.Byte, n.Valid, true
	case sql.NullFloat64:
		return n.Float64, n.Valid, true
	case sql.NullBool:
		return n.Bool, n.Valid, true
	case sql.NullTime:
		return n.Time, n.Valid, true
	case uuid.NullUUID:
		return n.UUID, n.Valid, true
	case decimal.NullDecimal:
		return n.Decimal, n.Valid, true
	default:
		return nil, false, false
	}
}

// isAbsent reports whether v carries no value: untyped nil or a nil
// pointer, interface, map, slice, channel or func.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
