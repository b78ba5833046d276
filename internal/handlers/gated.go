// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"postready/internal/entitlement"
	"postready/internal/middleware"
	"postready/internal/tools"
)

const (
	msgUpgrade        = "You've used your free generations for this tool. Upgrade to Pro for unlimited access."
	msgGenerateFailed = "Generation failed. Please try again."
	msgInternal       = "Something went wrong. Please try again."
)

// usageInfo is the caller's standing for one tool after a request.
type usageInfo struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"` // -1 when unlimited
	Unlimited bool `json:"unlimited"`
}

func usageAfter(d entitlement.Decision) usageInfo {
	d.Used++
	return usageInfo{Used: d.Used, Limit: d.Limit, Remaining: d.Remaining(), Unlimited: d.Unlimited}
}

// quotaBody is the 403 response for an exhausted free limit.
type quotaBody struct {
	Error           string `json:"error"`
	RequiresUpgrade bool   `json:"requiresUpgrade"`
	Reason          string `json:"reason"`
	Tool            string `json:"tool"`
	Used            int    `json:"used"`
	Limit           int    `json:"limit"`
}

// moderationBody is the 422 response for flagged input.
type moderationBody struct {
	Error      string   `json:"error"`
	Categories []string `json:"categories"`
}

// decodeInput reads and validates the request body for tool. On failure
// it writes the 400 response and returns false.
func (a *API) decodeInput(w http.ResponseWriter, r *http.Request, tool *tools.Tool) (tools.Input, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := readAll(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "could not read request body")
		return nil, false
	}

	in, err := tool.Validate(body)
	if err != nil {
		var ve *tools.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Message)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return nil, false
	}
	return in, true
}

// screen runs the input through moderation. A moderation outage lets the
// request through; providers apply their own filters. Returns false after
// writing a 422 when the input is flagged.
func (a *API) screen(w http.ResponseWriter, r *http.Request, tool *tools.Tool, in tools.Input) bool {
	if a.Moderation == nil {
		return true
	}
	text := tool.ModerationText(in)
	if strings.TrimSpace(text) == "" {
		return true
	}

	result, err := a.Moderation.CheckPrompt(r.Context(), text)
	if err != nil {
		slog.Warn("moderation check failed, allowing prompt", "tool", tool.Name, "error", err)
		return true
	}
	if result == nil || result.Safe {
		return true
	}

	slog.Warn("prompt flagged by moderation", "tool", tool.Name, "categories", strings.Join(result.Categories, ", "))
	writeJSON(w, http.StatusUnprocessableEntity, moderationBody{
		Error:      "Your request was flagged by our content policy. Please rephrase it and try again.",
		Categories: result.Categories,
	})
	return false
}

// admit passes the caller through the entitlement gate. Returns nil after
// writing the response when the request must stop here.
func (a *API) admit(w http.ResponseWriter, r *http.Request, tool *tools.Tool) *entitlement.Ticket {
	id := middleware.IdentityFromCtx(r.Context())
	ticket, d, err := a.Gate.Admit(w, r, id, tool.Name, tool.FreeLimit)
	switch {
	case errors.Is(err, entitlement.ErrQuotaExceeded):
		writeJSON(w, http.StatusForbidden, quotaBody{
			Error:           msgUpgrade,
			RequiresUpgrade: true,
			Reason:          d.Reason,
			Tool:            tool.Name,
			Used:            d.Used,
			Limit:           d.Limit,
		})
		return nil
	case err != nil:
		slog.Error("entitlement check failed", "tool", tool.Name, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return nil
	}
	return ticket
}

// commit records a successful generation. The result is still delivered
// if recording fails; the failure is logged.
func commit(r *http.Request, tool string, ticket *entitlement.Ticket) {
	if err := ticket.Commit(r.Context()); err != nil {
		slog.Error("failed to record tool usage", "tool", tool, "error", err)
	}
}
