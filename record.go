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
	"fmt"
	"strconv"
	"strings"
)

// Placeholder names used by every call record.
const (
	KeyTraceIdentifier = "TraceIdentifier"
	KeyMethod          = "Method"
	KeyElapsed         = "ElapsedMilliseconds"
	KeyReturnValue     = "ReturnValue"
	KeyFailure         = "Failure"

	// ExcludedPlaceholder replaces the value of an excluded parameter.
	ExcludedPlaceholder = "Excluded"
)

const (
	recordPrefix  = "TraceIdentifier: {" + KeyTraceIdentifier + "} - Method: {" + KeyMethod + "} - Executed in {" + KeyElapsed + "}ms - Arguments: "
	recordNoArgs  = "None "
	recordSuffix  = "- ReturnValue (): {" + KeyReturnValue + "}"
	failureRecord = "Intercepted call failed - Method: {" + KeyMethod + "} - Exception: {" + KeyFailure + "}"
)

// Record is the structured output of one intercepted call. Template holds
// one named placeholder per entry of Values, in the same order.
type Record struct {
	Severity Severity
	Template string
	Values   []any
}

// argumentSlot is one logged parameter.
type argumentSlot struct {
	name  string
	value any
}

// buildRecord assembles the record for a completed call. declared is the
// number of parameters the method declares, which decides whether the
// "None" marker is written.
func buildRecord(severity Severity, correlationID, label string, elapsedMS int64, declared int, slots []argumentSlot, returnValue any) Record {
	var b strings.Builder
	b.Grow(len(recordPrefix) + len(recordSuffix) + 16*len(slots))
	b.WriteString(recordPrefix)
	if declared == 0 {
		b.WriteString(recordNoArgs)
	}

	values := make([]any, 0, len(slots)+4)
	values = append(values, correlationID, label, elapsedMS)
	for _, slot := range slots {
		b.WriteString(slot.name)
		b.WriteString(":{")
		b.WriteString(slot.name)
		b.WriteString("} ")
		values = append(values, slot.value)
	}
	b.WriteString(recordSuffix)
	values = append(values, returnValue)

	return Record{Severity: severity, Template: b.String(), Values: values}
}

// Placeholders returns the placeholder names of template in order. A
// placeholder is a brace-delimited name; "{{" and "}}" are literal braces.
func Placeholders(template string) []string {
	var names []string
	scanTemplate(template, func(literal string) {}, func(name string) {
		names = append(names, name)
	})
	return names
}

// RenderTemplate substitutes values into template positionally. Missing
// values render as their placeholder; nil renders as an empty string.
func RenderTemplate(template string, values []any) string {
	var b strings.Builder
	b.Grow(len(template) + 8*len(values))
	i := 0
	scanTemplate(template, func(literal string) {
		b.WriteString(literal)
	}, func(name string) {
		if i >= len(values) {
			b.WriteString("{" + name + "}")
			return
		}
		b.WriteString(formatValue(values[i]))
		i++
	})
	return b.String()
}

// scanTemplate splits template into literal runs and placeholder names.
func scanTemplate(template string, literal func(string), placeholder func(string)) {
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			literal(lit.String())
			lit.Reset()
		}
	}
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				lit.WriteString(template[i:])
				i = len(template)
				continue
			}
			flush()
			placeholder(template[i+1 : i+1+end])
			i += end + 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()
}

// formatValue renders a single substitution value.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
