// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tools holds the catalog of generation tools: their input fields,
// prompt templates, decoding parameters and free limits. It validates
// request bodies, assembles prompts and normalizes model output into the
// response shape shared by every tool.
package tools

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Tool kinds.
const (
	KindText   = "text"
	KindSpeech = "speech"
)

// DefaultFreeLimit applies to tools whose catalog entry sets no free_limit.
const DefaultFreeLimit = 1

// Field describes one accepted request field. All fields are strings.
type Field struct {
	Name      string   `yaml:"name" json:"name"`
	Required  bool     `yaml:"required" json:"required"`
	MaxLength int      `yaml:"max_length" json:"maxLength,omitempty"`
	Enum      []string `yaml:"enum" json:"enum,omitempty"`
	Default   string   `yaml:"default" json:"default,omitempty"`
	Pattern   string   `yaml:"pattern" json:"-"`

	re *regexp.Regexp
}

// Tool is one catalog entry.
type Tool struct {
	Name        string  `yaml:"name"`
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Kind        string  `yaml:"kind"`
	FreeLimit   int     `yaml:"-"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	JSON        bool    `yaml:"json"`
	Collection  string  `yaml:"collection"`
	TextKey     string  `yaml:"text_key"`
	Label       string  `yaml:"label"`
	AllowEmpty  bool    `yaml:"allow_empty"`
	Fields      []Field `yaml:"fields"`
	System      string  `yaml:"system"`
	User        string  `yaml:"user"`

	RawFreeLimit *int `yaml:"free_limit"`

	system *template.Template
	user   *template.Template
}

// Catalog is the set of tools, in declaration order.
type Catalog struct {
	tools  []*Tool
	byName map[string]*Tool
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// Parse builds a catalog from YAML and checks every entry: unique names,
// known kinds, non-negative limits, compilable patterns and templates that
// render with every declared field.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Tools []*Tool `yaml:"tools"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tool catalog: %w", err)
	}
	if len(doc.Tools) == 0 {
		return nil, fmt.Errorf("tool catalog is empty")
	}

	c := &Catalog{byName: make(map[string]*Tool, len(doc.Tools))}
	for _, t := range doc.Tools {
		if err := t.prepare(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[t.Name]; dup {
			return nil, fmt.Errorf("tool %q declared twice", t.Name)
		}
		c.byName[t.Name] = t
		c.tools = append(c.tools, t)
	}
	return c, nil
}

func (t *Tool) prepare() error {
	if t.Name == "" {
		return fmt.Errorf("tool without a name")
	}

	t.FreeLimit = DefaultFreeLimit
	if t.RawFreeLimit != nil {
		if *t.RawFreeLimit < 0 {
			return fmt.Errorf("tool %q: free_limit must be >= 0", t.Name)
		}
		t.FreeLimit = *t.RawFreeLimit
	}

	seen := make(map[string]bool, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Name == "" || seen[f.Name] {
			return fmt.Errorf("tool %q: field %d has an empty or duplicate name", t.Name, i)
		}
		seen[f.Name] = true
		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return fmt.Errorf("tool %q field %q: %w", t.Name, f.Name, err)
			}
			f.re = re
		}
	}

	switch t.Kind {
	case KindText:
		if strings.TrimSpace(t.User) == "" {
			return fmt.Errorf("tool %q: text tools need a user template", t.Name)
		}
		var err error
		if t.system, err = parseTemplate(t.Name+"/system", t.System); err != nil {
			return err
		}
		if t.user, err = parseTemplate(t.Name+"/user", t.User); err != nil {
			return err
		}
		// Render once with every field set so missing keys fail at startup.
		sample := Input{}
		for _, f := range t.Fields {
			sample[f.Name] = "x"
		}
		if _, err := t.BuildPrompt(sample); err != nil {
			return err
		}
	case KindSpeech:
		if _, ok := seen["text"]; !ok {
			return fmt.Errorf("tool %q: speech tools need a text field", t.Name)
		}
	default:
		return fmt.Errorf("tool %q: unknown kind %q", t.Name, t.Kind)
	}
	return nil
}

func parseTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// Lookup returns the named tool.
func (c *Catalog) Lookup(name string) (*Tool, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// All returns every tool in declaration order.
func (c *Catalog) All() []*Tool {
	out := make([]*Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Limits returns the free limit of every tool keyed by name.
func (c *Catalog) Limits() map[string]int {
	out := make(map[string]int, len(c.tools))
	for _, t := range c.tools {
		out[t.Name] = t.FreeLimit
	}
	return out
}
