// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tools

import (
	"strings"
	"testing"
)

func mustLoad(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func mustTool(t *testing.T, name string) *Tool {
	t.Helper()
	tool, ok := mustLoad(t).Lookup(name)
	if !ok {
		t.Fatalf("tool %q not in catalog", name)
	}
	return tool
}

func TestLoad_EmbeddedCatalog(t *testing.T) {
	c := mustLoad(t)

	want := map[string]int{
		"caption-generator": 1,
		"hashtag-generator": 3,
		"viral-ideas":       1,
		"hook-generator":    1,
		"bio-generator":     1,
		"red-flag-analyzer": 1,
		"content-calendar":  1,
		"voiceover":         1,
	}
	limits := c.Limits()
	if len(limits) != len(want) {
		t.Errorf("catalog has %d tools, want %d", len(limits), len(want))
	}
	for name, limit := range want {
		if got, ok := limits[name]; !ok || got != limit {
			t.Errorf("limit[%s] = %d (present=%v), want %d", name, got, ok, limit)
		}
	}

	if all := c.All(); all[0].Name != "caption-generator" || all[len(all)-1].Name != "voiceover" {
		t.Errorf("All() not in declaration order: first %q last %q", all[0].Name, all[len(all)-1].Name)
	}

	voice, _ := c.Lookup("voiceover")
	if voice.Kind != KindSpeech {
		t.Errorf("voiceover kind = %q", voice.Kind)
	}
	if _, ok := c.Lookup("nope"); ok {
		t.Error("Lookup should miss unknown tools")
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	c := mustLoad(t)
	all := c.All()
	all[0] = nil
	if c.All()[0] == nil {
		t.Error("mutating All() result changed the catalog")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "tools: []", "empty"},
		{"bad yaml", "tools: [", "parse tool catalog"},
		{"no name", "tools:\n  - kind: text\n    user: hi", "without a name"},
		{"unknown kind", "tools:\n  - name: a\n    kind: video", "unknown kind"},
		{"negative limit", "tools:\n  - name: a\n    kind: text\n    free_limit: -1\n    user: hi", "free_limit"},
		{"duplicate", "tools:\n  - name: a\n    kind: text\n    user: hi\n  - name: a\n    kind: text\n    user: hi", "twice"},
		{"missing user template", "tools:\n  - name: a\n    kind: text", "user template"},
		{"template references undeclared field", "tools:\n  - name: a\n    kind: text\n    user: \"{{.missing}}\"", "missing"},
		{"broken template", "tools:\n  - name: a\n    kind: text\n    user: \"{{.x\"", "parse template"},
		{"speech without text", "tools:\n  - name: a\n    kind: speech\n    fields:\n      - name: script", "text field"},
		{"bad pattern", "tools:\n  - name: a\n    kind: speech\n    fields:\n      - name: text\n        pattern: \"[\"", "field \"text\""},
		{"duplicate field", "tools:\n  - name: a\n    kind: speech\n    fields:\n      - name: text\n      - name: text", "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestParse_ZeroFreeLimit(t *testing.T) {
	c, err := Parse([]byte("tools:\n  - name: paid-only\n    kind: text\n    free_limit: 0\n    user: hi"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tool, _ := c.Lookup("paid-only")
	if tool.FreeLimit != 0 {
		t.Errorf("FreeLimit = %d, want explicit 0 kept", tool.FreeLimit)
	}
}
