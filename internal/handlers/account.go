// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"postready/internal/middleware"
	"postready/internal/models"
)

// meResponse is the signed-in caller's profile.
type meResponse struct {
	*models.Profile
	HasBillingAccount bool `json:"has_billing_account"`
	BillingEnabled    bool `json:"billing_enabled"`
}

// Me returns the caller's profile, creating it on first sight.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())

	p, err := a.Profiles.Ensure(r.Context(), id.AccountID, id.Email)
	if err != nil {
		slog.Error("ensure profile failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		Profile:           p,
		HasBillingAccount: p.HasBillingAccount(),
		BillingEnabled:    a.Billing != nil,
	})
}

// Usage reports the caller's usage of every tool for their identity class.
func (a *API) Usage(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())

	summary, err := a.Gate.Summarize(r, id, a.Catalog.Limits())
	if err != nil {
		slog.Error("usage summary failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
