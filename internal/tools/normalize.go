// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoItems is returned when model output holds nothing usable.
var ErrNoItems = errors.New("tools: model returned no items")

// Item is one generated unit with its category or style label.
type Item struct {
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
}

// Result is the response shape shared by every text tool.
type Result struct {
	Tool    string   `json:"tool"`
	Items   []Item   `json:"items"`
	Summary string   `json:"summary,omitempty"`
	Score   *float64 `json:"score,omitempty"`
}

// labelFallbacks are tried after the tool's own label key.
var labelFallbacks = []string{"category", "style", "label", "type"}

// Normalize parses raw model output into a Result. It tolerates code fences
// around the JSON, a bare array instead of an object, and elements given
// either as strings or as objects.
func (t *Tool) Normalize(raw string) (*Result, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, ErrNoItems
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("decode %s output: %w", t.Name, err)
	}

	res := &Result{Tool: t.Name, Items: []Item{}}

	var list []any
	switch v := doc.(type) {
	case []any:
		list = v
	case map[string]any:
		list = t.collection(v)
		if s, ok := v["summary"].(string); ok {
			res.Summary = strings.TrimSpace(s)
		}
		if n, ok := v["score"].(float64); ok {
			res.Score = &n
		}
	default:
		return nil, fmt.Errorf("decode %s output: unexpected %T", t.Name, doc)
	}

	for _, el := range list {
		if it, ok := t.item(el); ok {
			res.Items = append(res.Items, it)
		}
	}

	if len(res.Items) == 0 && !(t.AllowEmpty && res.Summary != "") {
		return nil, ErrNoItems
	}
	return res, nil
}

func (t *Tool) collection(obj map[string]any) []any {
	for _, key := range []string{t.Collection, "items"} {
		if key == "" {
			continue
		}
		if list, ok := obj[key].([]any); ok {
			return list
		}
	}
	return nil
}

func (t *Tool) item(el any) (Item, bool) {
	switch v := el.(type) {
	case string:
		s := strings.TrimSpace(v)
		return Item{Text: s}, s != ""
	case map[string]any:
		var it Item
		for _, key := range []string{t.TextKey, "text", "content"} {
			if key == "" {
				continue
			}
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				it.Text = strings.TrimSpace(s)
				break
			}
		}
		for _, key := range append([]string{t.Label}, labelFallbacks...) {
			if key == "" {
				continue
			}
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				it.Label = strings.TrimSpace(s)
				break
			}
		}
		return it, it.Text != ""
	}
	return Item{}, false
}

// stripFences removes a surrounding Markdown code fence such as ```json.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
