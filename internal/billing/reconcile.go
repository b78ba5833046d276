// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"postready/internal/models"
)

// Event is a verified Stripe webhook reduced to what changes a profile.
type Event struct {
	ID             string
	Type           string
	Relevant       bool // false for event types that are only acknowledged
	AccountID      uuid.UUID
	CustomerID     string
	SubscriptionID string
	Active         bool // subscription flag after this event
}

// ProfileWriter is the profile persistence the reconciler needs.
type ProfileWriter interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindByCustomerID(ctx context.Context, customerID string) (*models.Profile, error)
	SetCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
	SetSubscription(ctx context.Context, id uuid.UUID, isPro bool, subscriptionID *string) error
}

// FlagWriter overwrites the cached subscription flag with a new value.
type FlagWriter interface {
	Set(ctx context.Context, id uuid.UUID, isPro bool)
}

// Reconciler applies webhook events to profiles.
type Reconciler struct {
	profiles ProfileWriter
	cache    FlagWriter
}

// NewReconciler creates a reconciler. cache may be nil.
func NewReconciler(profiles ProfileWriter, cache FlagWriter) *Reconciler {
	return &Reconciler{profiles: profiles, cache: cache}
}

// Apply updates the profile the event belongs to. Irrelevant events and
// events that cannot be tied to an account are logged and skipped; store
// errors are returned so Stripe retries the delivery.
func (rc *Reconciler) Apply(ctx context.Context, ev *Event) error {
	if !ev.Relevant {
		slog.Debug("stripe event ignored", "id", ev.ID, "type", ev.Type)
		return nil
	}

	id := ev.AccountID
	if id == uuid.Nil && ev.CustomerID != "" {
		p, err := rc.profiles.FindByCustomerID(ctx, ev.CustomerID)
		if err != nil {
			return fmt.Errorf("resolve customer %s: %w", ev.CustomerID, err)
		}
		if p != nil {
			id = p.ID
		}
	}
	if id == uuid.Nil {
		slog.Warn("stripe event without a known account", "id", ev.ID, "type", ev.Type, "customer", ev.CustomerID)
		return nil
	}

	// A revoking event only applies to the subscription the profile
	// currently tracks; one for an older, replaced subscription is stale.
	if !ev.Active && ev.SubscriptionID != "" {
		p, err := rc.profiles.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load profile %s: %w", id, err)
		}
		if p != nil && p.StripeSubscriptionID != nil && *p.StripeSubscriptionID != "" &&
			*p.StripeSubscriptionID != ev.SubscriptionID {
			slog.Info("stripe event for a replaced subscription ignored",
				"account", id,
				"event", ev.Type,
				"subscription", ev.SubscriptionID,
				"current", *p.StripeSubscriptionID,
			)
			return nil
		}
	}

	if ev.CustomerID != "" {
		if err := rc.profiles.SetCustomerID(ctx, id, ev.CustomerID); err != nil {
			return err
		}
	}

	var subID *string
	if ev.Active && ev.SubscriptionID != "" {
		s := ev.SubscriptionID
		subID = &s
	}
	if err := rc.profiles.SetSubscription(ctx, id, ev.Active, subID); err != nil {
		return err
	}

	if rc.cache != nil {
		rc.cache.Set(ctx, id, ev.Active)
	}

	slog.Info("subscription updated",
		"account", id,
		"event", ev.Type,
		"pro", ev.Active,
	)
	return nil
}
