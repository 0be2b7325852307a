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
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// TagKey is the struct tag consulted by the serializer. A field tagged
// `slogcall:"exclude"` (or `slogcall:"-"`) is omitted from serialized output.
const TagKey = "slogcall"

const (
	tagExclude = "exclude"

	// notSerializedSuffix is appended to the type name of values the
	// serializer could not render.
	notSerializedSuffix = "NotSerialized"

	truncatedSuffix = "...(truncated)"

	// maxWalkDepth bounds the cycle detection walk; deeper values are
	// treated as unserializable.
	maxWalkDepth = 512
)

var (
	// ErrNotSerializable wraps every failure reported by Serializer.Marshal.
	ErrNotSerializable = errors.New("slogcall: value not serializable")

	errCyclicValue = errors.New("cyclic value")
	errTooDeep     = errors.New("value nesting too deep")

	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

	protoMarshalOptions = protojson.MarshalOptions{
		Multiline:       false,
		AllowPartial:    true,
		UseProtoNames:   true,
		EmitUnpopulated: false,
	}
)

// Argument is the structured form logged for complex call arguments: the
// argument's concrete type name paired with its serialized text.
type Argument struct {
	Type  string `json:"ArgumentType"`
	Value string `json:"Value"`
}

// LogValue implements slog.LogValuer.
func (a Argument) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("ArgumentType", a.Type),
		slog.String("Value", a.Value),
	)
}

// String renders the argument for text templates.
func (a Argument) String() string {
	return "{ ArgumentType = " + a.Type + ", Value = " + a.Value + " }"
}

// Serializer renders complex values as JSON text while honouring the
// field-level exclusion tag. It is safe for concurrent use.
type Serializer struct {
	api          jsoniter.API
	maxValueSize int
}

// NewSerializer returns a Serializer. When maxValueSize is positive,
// serialized text longer than that many bytes is truncated.
func NewSerializer(maxValueSize int) *Serializer {
	api := jsoniter.Config{
		EscapeHTML:             false,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
	}.Froze()
	api.RegisterExtension(&exclusionExtension{})
	return &Serializer{api: api, maxValueSize: maxValueSize}
}

// Serialize renders v as text. It never fails: values that cannot be
// rendered produce the "<type>NotSerialized" placeholder.
func (s *Serializer) Serialize(v any) string {
	text, err := s.Marshal(v)
	if err != nil {
		return notSerialized(v)
	}
	return text
}

// Marshal renders v as text and reports why rendering failed. Protocol
// buffer messages are rendered with protojson; everything else goes through
// json-iterator with excluded fields dropped.
func (s *Serializer) Marshal(v any) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %s: panic: %v", ErrNotSerializable, typeName(v), r)
		}
	}()

	if v == nil {
		return "null", nil
	}

	if m, ok := v.(proto.Message); ok {
		b, err := protoMarshalOptions.Marshal(m)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrNotSerializable, typeName(v), err)
		}
		return s.truncate(string(b)), nil
	}

	if err := checkWalkable(reflect.ValueOf(v)); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNotSerializable, typeName(v), err)
	}

	b, err := s.api.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNotSerializable, typeName(v), err)
	}
	return s.truncate(string(b)), nil
}

// argument builds the structured wrapper logged for a complex argument.
func (s *Serializer) argument(v any) (Argument, error) {
	text, err := s.Marshal(v)
	if err != nil {
		text = notSerialized(v)
	}
	return Argument{Type: typeName(v), Value: text}, err
}

// truncate shortens text to the configured size on a rune boundary.
func (s *Serializer) truncate(text string) string {
	if s.maxValueSize <= 0 || len(text) <= s.maxValueSize {
		return text
	}
	cut := s.maxValueSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + truncatedSuffix
}

// exclusionExtension drops struct fields tagged for exclusion before
// json-iterator builds its encoders.
type exclusionExtension struct {
	jsoniter.DummyExtension
}

// UpdateStructDescriptor implements jsoniter.Extension.
func (*exclusionExtension) UpdateStructDescriptor(sd *jsoniter.StructDescriptor) {
	for _, binding := range sd.Fields {
		if binding == nil || binding.Field == nil {
			continue
		}
		if isExcludedField(binding.Field.Tag()) {
			binding.ToNames = []string{}
			binding.FromNames = []string{}
		}
	}
}

// isExcludedField reports whether tag carries the exclusion marker.
func isExcludedField(tag reflect.StructTag) bool {
	value, ok := tag.Lookup(TagKey)
	if !ok {
		return false
	}
	for _, part := range strings.Split(value, ",") {
		switch strings.TrimSpace(part) {
		case tagExclude, "-":
			return true
		}
	}
	return false
}

// checkWalkable rejects values json-iterator would recurse into forever.
func checkWalkable(v reflect.Value) error {
	w := walker{onPath: make(map[walkKey]struct{})}
	return w.walk(v, 0)
}

type walkKey struct {
	ptr uintptr
	typ reflect.Type
}

type walker struct {
	onPath map[walkKey]struct{}
}

// walk descends through the parts of v that the encoder visits and reports a
// reference that leads back to one of its own ancestors.
func (w walker) walk(v reflect.Value, depth int) error {
	if !v.IsValid() {
		return nil
	}
	if depth > maxWalkDepth {
		return errTooDeep
	}
	if customEncoded(v.Type()) {
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Slice && v.Len() == 0 {
			return nil
		}
		key := walkKey{ptr: v.Pointer(), typ: v.Type()}
		if _, seen := w.onPath[key]; seen {
			return errCyclicValue
		}
		w.onPath[key] = struct{}{}
		defer delete(w.onPath, key)

		switch v.Kind() {
		case reflect.Pointer:
			return w.walk(v.Elem(), depth+1)
		case reflect.Map:
			iter := v.MapRange()
			for iter.Next() {
				if err := w.walk(iter.Value(), depth+1); err != nil {
					return err
				}
			}
			return nil
		default:
			return w.walkElems(v, depth)
		}
	case reflect.Array:
		return w.walkElems(v, depth)
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return w.walk(v.Elem(), depth+1)
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() && !f.Anonymous {
				continue
			}
			if isExcludedField(f.Tag) || f.Tag.Get("json") == "-" {
				continue
			}
			if err := w.walk(v.Field(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// walkElems walks every element of a slice or array.
func (w walker) walkElems(v reflect.Value, depth int) error {
	if v.Len() == 0 {
		return nil
	}
	switch v.Type().Elem().Kind() {
	case reflect.Bool, reflect.String, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float32, reflect.Float64:
		return nil
	}
	for i := 0; i < v.Len(); i++ {
		if err := w.walk(v.Index(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

// customEncoded reports whether values of t render through their own
// marshaler, in which case their internals are not walked.
func customEncoded(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	return t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) ||
		reflect.PointerTo(t).Implements(jsonMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType)
}

// typeName returns the concrete type name of v, such as "orders.Order" or
// "*orders.Order".
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

// notSerialized returns the placeholder logged for unrenderable values.
func notSerialized(v any) string {
	return typeName(v) + notSerializedSuffix
}
