// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package billing connects accounts to Stripe subscriptions: checkout and
// customer-portal sessions on the way out, signed webhooks on the way back
// that flip the profile's subscription flag.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("billing: invalid webhook signature")

// metadataAccountKey carries the account id on checkout sessions and
// subscriptions.
const metadataAccountKey = "userId"

// Config holds the Stripe settings.
type Config struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	AppURL        string // frontend base URL for redirects

	// Backends overrides the Stripe API endpoint (tests).
	Backends *stripe.Backends
}

// CheckoutInput describes a subscription checkout for one account.
type CheckoutInput struct {
	AccountID  uuid.UUID
	Email      string
	CustomerID string // existing Stripe customer, if any
}

// Stripe wraps the Stripe API client.
type Stripe struct {
	api           *client.API
	webhookSecret string
	priceID       string
	appURL        string
}

// NewStripe creates the Stripe client.
func NewStripe(cfg Config) (*Stripe, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if cfg.PriceID == "" {
		return nil, fmt.Errorf("stripe price id is required")
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, cfg.Backends)

	return &Stripe{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		priceID:       cfg.PriceID,
		appURL:        cfg.AppURL,
	}, nil
}

// CreateCheckout starts a subscription checkout and returns its URL. The
// account id rides along as client_reference_id and as subscription
// metadata so every later webhook can be tied back to the account.
func (s *Stripe) CreateCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(s.priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(s.appURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.appURL + "/pricing"),
		ClientReferenceID: stripe.String(in.AccountID.String()),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metadataAccountKey: in.AccountID.String()},
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataAccountKey, in.AccountID.String())

	switch {
	case in.CustomerID != "":
		params.Customer = stripe.String(in.CustomerID)
	case in.Email != "":
		params.CustomerEmail = stripe.String(in.Email)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if sess.URL == "" {
		return "", fmt.Errorf("create checkout session: no url returned")
	}
	return sess.URL, nil
}

// CreatePortal opens a customer-portal session and returns its URL.
func (s *Stripe) CreatePortal(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.appURL + "/account"),
	}
	params.Context = ctx

	sess, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

// ParseWebhook verifies the Stripe-Signature header and maps the event onto
// an Event. Event types this service does not act on come back with
// Relevant=false.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return translate(ev)
}

// translate extracts what the reconciler needs from a verified event.
func translate(ev stripe.Event) (*Event, error) {
	out := &Event{ID: ev.ID, Type: ev.Type}
	if ev.Data == nil {
		return out, nil
	}

	switch ev.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		out.Relevant = true
		out.Active = true
		out.AccountID = accountFrom(cs.ClientReferenceID, cs.Metadata)
		if cs.Customer != nil {
			out.CustomerID = cs.Customer.ID
		}
		if cs.Subscription != nil {
			out.SubscriptionID = cs.Subscription.ID
		}

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		out.Relevant = true
		out.AccountID = accountFrom("", sub.Metadata)
		out.SubscriptionID = sub.ID
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
		out.Active = ev.Type != "customer.subscription.deleted" && ActiveStatus(sub.Status)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		out.Relevant = true
		out.Active = false
		if inv.Customer != nil {
			out.CustomerID = inv.Customer.ID
		}
		if inv.Subscription != nil {
			out.SubscriptionID = inv.Subscription.ID
		}
	}

	return out, nil
}

// ActiveStatus reports whether a subscription status grants access.
func ActiveStatus(status stripe.SubscriptionStatus) bool {
	return status == stripe.SubscriptionStatusActive || status == stripe.SubscriptionStatusTrialing
}

// accountFrom reads the account id from a client reference or metadata.
// Returns uuid.Nil when neither holds a valid id.
func accountFrom(ref string, metadata map[string]string) uuid.UUID {
	for _, v := range []string{ref, metadata[metadataAccountKey]} {
		if id, err := uuid.Parse(v); err == nil && id != uuid.Nil {
			return id
		}
	}
	return uuid.Nil
}
