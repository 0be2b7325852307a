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
	"errors"
	"strings"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

type credentials struct {
	User     string `json:"user"`
	Password string `json:"password" slogcall:"exclude"`
	Token    string `slogcall:"-"`
}

type account struct {
	ID    int         `json:"id"`
	Login credentials `json:"login"`
	Tags  []string    `json:"tags,omitempty"`
}

type node struct {
	Name string `json:"name"`
	Next *node  `json:"next,omitempty"`
}

type withChannel struct {
	Updates chan int `json:"updates"`
}

// TestSerializerExcludesTaggedFields verifies excluded fields never reach the output at any depth.
func TestSerializerExcludesTaggedFields(t *testing.T) {
	t.Parallel()

	s := NewSerializer(0)
	got, err := s.Marshal(account{
		ID:    7,
		Login: credentials{User: "ann", Password: "hunter2", Token: "abc"},
	})
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}
	want := `{"id":7,"login":{"user":"ann"}}`
	if got != want {
		t.Fatalf("Marshal() = %s, want %s", got, want)
	}
	if strings.Contains(got, "hunter2") || strings.Contains(got, "abc") {
		t.Fatalf("excluded values leaked: %s", got)
	}
}

// TestSerializerSharedReferences ensures repeated non-cyclic references still serialize.
func TestSerializerSharedReferences(t *testing.T) {
	t.Parallel()

	shared := &node{Name: "leaf"}
	value := []*node{shared, shared}

	got, err := NewSerializer(0).Marshal(value)
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}
	if got != `[{"name":"leaf"},{"name":"leaf"}]` {
		t.Fatalf("Marshal() = %s", got)
	}
}

// TestSerializerFailures covers cyclic graphs and unsupported field types.
func TestSerializerFailures(t *testing.T) {
	t.Parallel()

	cyclic := &node{Name: "a"}
	cyclic.Next = &node{Name: "b", Next: cyclic}

	testCases := []struct {
		name        string
		value       any
		placeholder string
	}{
		{name: "cycle", value: cyclic, placeholder: "*slogcall.nodeNotSerialized"},
		{name: "channel", value: withChannel{Updates: make(chan int)}, placeholder: "slogcall.withChannelNotSerialized"},
		{name: "func", value: func() {}, placeholder: "func()NotSerialized"},
	}

	s := NewSerializer(0)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Marshal(tc.value); !errors.Is(err, ErrNotSerializable) {
				t.Fatalf("Marshal() error = %v, want ErrNotSerializable", err)
			}
			if got := s.Serialize(tc.value); got != tc.placeholder {
				t.Fatalf("Serialize() = %q, want %q", got, tc.placeholder)
			}
		})
	}
}

// TestSerializerProtoMessages renders protocol buffer messages with protojson.
func TestSerializerProtoMessages(t *testing.T) {
	t.Parallel()

	msg, err := structpb.NewStruct(map[string]any{"name": "ann"})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	got, err := NewSerializer(0).Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}
	if !strings.Contains(got, `"name"`) || !strings.Contains(got, `"ann"`) {
		t.Fatalf("Marshal() = %s", got)
	}
}

// TestSerializerTruncation shortens long output on a rune boundary.
func TestSerializerTruncation(t *testing.T) {
	t.Parallel()

	s := NewSerializer(4)
	got, err := s.Marshal("héllo")
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}
	// `"héllo"` is quote, h, two-byte é: a cut at 4 bytes keeps all three.
	if got != `"hé`+truncatedSuffix {
		t.Fatalf("Marshal() = %q", got)
	}

	if got := NewSerializer(64).Serialize([]int{1, 2}); got != "[1,2]" {
		t.Fatalf("short values must be untouched, got %q", got)
	}
}

// TestArgumentRendering checks the structured wrapper for complex arguments.
func TestArgumentRendering(t *testing.T) {
	t.Parallel()

	arg, err := NewSerializer(0).argument(credentials{User: "ann", Password: "x"})
	if err != nil {
		t.Fatalf("argument() returned error: %v", err)
	}
	if arg.Type != "slogcall.credentials" {
		t.Fatalf("Type = %q", arg.Type)
	}
	want := `{ ArgumentType = slogcall.credentials, Value = {"user":"ann"} }`
	if arg.String() != want {
		t.Fatalf("String() = %q, want %q", arg.String(), want)
	}
	attrs := arg.LogValue().Group()
	if len(attrs) != 2 || attrs[0].Key != "ArgumentType" || attrs[1].Key != "Value" {
		t.Fatalf("LogValue() = %v", attrs)
	}
}

// TestMarshalNil renders nil as JSON null.
func TestMarshalNil(t *testing.T) {
	t.Parallel()

	if got, err := NewSerializer(0).Marshal(nil); got != "null" || err != nil {
		t.Fatalf("Marshal(nil) = %q, %v", got, err)
	}
}
