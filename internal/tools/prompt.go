// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tools

import (
	"fmt"
	"strings"

	"postready/internal/ai"
)

// BuildPrompt renders the tool's templates with the validated input and
// attaches its decoding parameters. Values are interpolated as-is.
func (t *Tool) BuildPrompt(in Input) (ai.Prompt, error) {
	if t.Kind != KindText {
		return ai.Prompt{}, fmt.Errorf("tool %q does not generate text", t.Name)
	}

	var sys, usr strings.Builder
	if err := t.system.Execute(&sys, map[string]string(in)); err != nil {
		return ai.Prompt{}, fmt.Errorf("render %s system prompt: %w", t.Name, err)
	}
	if err := t.user.Execute(&usr, map[string]string(in)); err != nil {
		return ai.Prompt{}, fmt.Errorf("render %s user prompt: %w", t.Name, err)
	}

	return ai.Prompt{
		System:      strings.TrimSpace(sys.String()),
		User:        strings.TrimSpace(usr.String()),
		Temperature: t.Temperature,
		MaxTokens:   t.MaxTokens,
		JSON:        t.JSON,
	}, nil
}

// ModerationText joins the free-form values of a request for the
// moderation check. Enum fields are skipped since their values are fixed.
func (t *Tool) ModerationText(in Input) string {
	var parts []string
	for _, f := range t.Fields {
		if len(f.Enum) > 0 || f.Pattern != "" {
			continue
		}
		if v := in[f.Name]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}
