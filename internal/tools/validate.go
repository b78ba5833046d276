// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Input is a validated request: every declared field is present, trimmed,
// with defaults applied.
type Input map[string]string

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate decodes a JSON object body and checks it against the tool's
// fields. Unknown fields and non-string values are rejected; JSON null is
// treated as absent.
func (t *Tool) Validate(body []byte) (Input, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, invalid("", "request body must be a JSON object")
	}

	// Sorted so the reported field is stable.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]string, len(raw))
	for _, k := range keys {
		if t.field(k) == nil {
			return nil, invalid(k, "unknown field %q", k)
		}
		v := raw[k]
		if string(v) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, invalid(k, "%s must be a string", k)
		}
		values[k] = s
	}

	return t.check(values)
}

func (t *Tool) check(values map[string]string) (Input, error) {
	in := make(Input, len(t.Fields))
	for _, f := range t.Fields {
		v := strings.TrimSpace(values[f.Name])
		if v == "" {
			if f.Required {
				return nil, invalid(f.Name, "%s is required", f.Name)
			}
			in[f.Name] = f.Default
			continue
		}
		if f.MaxLength > 0 && utf8.RuneCountInString(v) > f.MaxLength {
			return nil, invalid(f.Name, "%s must be at most %d characters", f.Name, f.MaxLength)
		}
		if len(f.Enum) > 0 && !contains(f.Enum, v) {
			return nil, invalid(f.Name, "%s must be one of: %s", f.Name, strings.Join(f.Enum, ", "))
		}
		if f.re != nil && !f.re.MatchString(v) {
			return nil, invalid(f.Name, "%s has an invalid format", f.Name)
		}
		in[f.Name] = v
	}
	return in, nil
}

func (t *Tool) field(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
