// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"postready/internal/tools"
)

// toolInfo is the public description of a tool.
type toolInfo struct {
	Name        string        `json:"name"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Kind        string        `json:"kind"`
	FreeLimit   int           `json:"freeLimit"`
	Fields      []tools.Field `json:"fields"`
}

// toolResponse is a normalized text result plus the caller's usage.
type toolResponse struct {
	*tools.Result
	Usage usageInfo `json:"usage"`
}

// ListTools returns the catalog.
func (a *API) ListTools(w http.ResponseWriter, r *http.Request) {
	all := a.Catalog.All()
	out := make([]toolInfo, 0, len(all))
	for _, t := range all {
		out = append(out, toolInfo{
			Name:        t.Name,
			Title:       t.Title,
			Description: t.Description,
			Kind:        t.Kind,
			FreeLimit:   t.FreeLimit,
			Fields:      t.Fields,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

// RunTool runs a text tool for the caller.
func (a *API) RunTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "tool")
	tool, ok := a.Catalog.Lookup(name)
	if !ok || tool.Kind != tools.KindText {
		writeError(w, http.StatusNotFound, "unknown tool")
		return
	}

	in, ok := a.decodeInput(w, r, tool)
	if !ok {
		return
	}
	if !a.screen(w, r, tool, in) {
		return
	}
	ticket := a.admit(w, r, tool)
	if ticket == nil {
		return
	}

	prompt, err := tool.BuildPrompt(in)
	if err != nil {
		slog.Error("prompt assembly failed", "tool", tool.Name, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	raw, err := a.Text.Generate(r.Context(), prompt)
	if err != nil {
		slog.Error("generation failed", "tool", tool.Name, "error", err)
		writeError(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}

	result, err := tool.Normalize(raw)
	if err != nil {
		slog.Error("unusable model output", "tool", tool.Name, "error", err, "bytes", len(raw))
		writeError(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}

	// The anonymous counter is a cookie, so commit before the body.
	commit(r, tool.Name, ticket)

	slog.Info("tool generated", "tool", tool.Name, "items", len(result.Items), "unlimited", ticket.Decision.Unlimited)
	writeJSON(w, http.StatusOK, toolResponse{Result: result, Usage: usageAfter(ticket.Decision)})
}

func readAll(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	return io.ReadAll(r.Body)
}
