// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tools

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tool := mustTool(t, "caption-generator")

	tests := []struct {
		name      string
		body      string
		wantField string // empty means the body is valid
		want      Input
	}{
		{
			name: "defaults applied",
			body: `{"topic":"  summer sale  "}`,
			want: Input{"topic": "summer sale", "platform": "instagram", "tone": "casual"},
		},
		{
			name: "explicit values",
			body: `{"topic":"launch","platform":"linkedin","tone":"professional"}`,
			want: Input{"topic": "launch", "platform": "linkedin", "tone": "professional"},
		},
		{
			name: "null treated as absent",
			body: `{"topic":"launch","tone":null}`,
			want: Input{"topic": "launch", "platform": "instagram", "tone": "casual"},
		},
		{name: "missing required", body: `{"platform":"x"}`, wantField: "topic"},
		{name: "blank required", body: `{"topic":"   "}`, wantField: "topic"},
		{name: "empty body", body: ``, wantField: "topic"},
		{name: "unknown field", body: `{"topic":"a","userId":"123"}`, wantField: "userId"},
		{name: "number value", body: `{"topic":42}`, wantField: "topic"},
		{name: "array value", body: `{"topic":["a"]}`, wantField: "topic"},
		{name: "enum mismatch", body: `{"topic":"a","platform":"myspace"}`, wantField: "platform"},
		{name: "too long", body: `{"topic":"` + strings.Repeat("a", 501) + `"}`, wantField: "topic"},
		{name: "not an object", body: `["topic"]`, wantField: ""},
		{name: "json null", body: `null`, wantField: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := tool.Validate([]byte(tt.body))
			if tt.want != nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				for k, v := range tt.want {
					if in[k] != v {
						t.Errorf("in[%q] = %q, want %q", k, in[k], v)
					}
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q (message %q)", ve.Field, tt.wantField, ve.Message)
			}
		})
	}
}

func TestValidate_LengthCountsRunes(t *testing.T) {
	tool := mustTool(t, "caption-generator")
	// 500 multi-byte runes is within the limit even though it is >500 bytes.
	body := `{"topic":"` + strings.Repeat("é", 500) + `"}`
	if _, err := tool.Validate([]byte(body)); err != nil {
		t.Errorf("500 runes should pass: %v", err)
	}
}

func TestValidate_Pattern(t *testing.T) {
	tool := mustTool(t, "voiceover")

	if _, err := tool.Validate([]byte(`{"text":"hi","voice_id":"21m00Tcm4TlvDq8ikWAM"}`)); err != nil {
		t.Errorf("valid voice id rejected: %v", err)
	}
	_, err := tool.Validate([]byte(`{"text":"hi","voice_id":"../admin"}`))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "voice_id" {
		t.Errorf("expected voice_id validation error, got %v", err)
	}
}
