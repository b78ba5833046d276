// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"postready/internal/billing"
	"postready/internal/middleware"
)

// maxWebhookBytes caps Stripe webhook payloads.
const maxWebhookBytes = 2 << 20

// maxEmailLen is the longest address accepted for checkout.
const maxEmailLen = 254

// checkoutRequest is the optional body of POST /api/billing/checkout.
type checkoutRequest struct {
	Email string `json:"email"`
}

// Checkout starts a subscription checkout for the caller and returns its URL.
func (a *API) Checkout(w http.ResponseWriter, r *http.Request) {
	if a.Billing == nil {
		writeError(w, http.StatusServiceUnavailable, "billing is not available")
		return
	}
	id := middleware.IdentityFromCtx(r.Context())

	var req checkoutRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = id.Email
	}
	if email != "" {
		if len(email) > maxEmailLen {
			writeError(w, http.StatusBadRequest, "email is too long")
			return
		}
		if _, err := mail.ParseAddress(email); err != nil {
			writeError(w, http.StatusBadRequest, "email is not a valid address")
			return
		}
	}

	p, err := a.Profiles.Ensure(r.Context(), id.AccountID, id.Email)
	if err != nil {
		slog.Error("ensure profile failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if p.IsPro {
		writeError(w, http.StatusConflict, "you already have an active subscription")
		return
	}

	in := billing.CheckoutInput{AccountID: id.AccountID, Email: email}
	if p.HasBillingAccount() {
		in.CustomerID = *p.StripeCustomerID
	}

	url, err := a.Billing.CreateCheckout(r.Context(), in)
	if err != nil {
		slog.Error("checkout session failed", "account", id.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "Could not start checkout. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Portal opens the billing portal for the caller's Stripe customer.
func (a *API) Portal(w http.ResponseWriter, r *http.Request) {
	if a.Billing == nil {
		writeError(w, http.StatusServiceUnavailable, "billing is not available")
		return
	}
	id := middleware.IdentityFromCtx(r.Context())

	p, err := a.Profiles.FindByID(r.Context(), id.AccountID)
	if err != nil {
		slog.Error("load profile failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if p == nil || !p.HasBillingAccount() {
		writeError(w, http.StatusBadRequest, "no billing account for this user")
		return
	}

	url, err := a.Billing.CreatePortal(r.Context(), *p.StripeCustomerID)
	if err != nil {
		slog.Error("portal session failed", "account", id.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "Could not open the billing portal. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// StripeWebhook receives subscription lifecycle events. Deliveries already
// processed are acknowledged without reapplying them; a store failure
// returns 500 so Stripe retries.
func (a *API) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Billing == nil || a.Reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, "billing is not available")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read payload")
		return
	}

	ev, err := a.Billing.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			slog.Warn("stripe webhook rejected", "error", err)
			writeError(w, http.StatusBadRequest, "invalid signature")
			return
		}
		slog.Error("stripe webhook unreadable", "error", err)
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx := r.Context()
	if a.Events != nil && ev.ID != "" {
		fresh, err := a.Events.MarkProcessed(ctx, ev.ID)
		if err != nil {
			slog.Warn("webhook de-duplication unavailable", "event", ev.ID, "error", err)
		} else if !fresh {
			slog.Info("stripe event already processed", "event", ev.ID, "type", ev.Type)
			writeJSON(w, http.StatusOK, map[string]any{"received": true, "duplicate": true})
			return
		}
	}

	if err := a.Reconciler.Apply(ctx, ev); err != nil {
		slog.Error("stripe event failed", "event", ev.ID, "type", ev.Type, "error", err)
		if a.Events != nil && ev.ID != "" {
			if err := a.Events.Forget(ctx, ev.ID); err != nil {
				slog.Warn("failed to release webhook event", "event", ev.ID, "error", err)
			}
		}
		writeError(w, http.StatusInternalServerError, "event processing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}
