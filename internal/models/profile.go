// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the per-account record kept alongside the Supabase auth user.
// The id is the Supabase user id (JWT "sub").
type Profile struct {
	ID                   uuid.UUID `json:"id"`
	Email                string    `json:"email"`
	IsPro                bool      `json:"is_pro"`
	StripeCustomerID     *string   `json:"-"` // Nullable; set after first checkout
	StripeSubscriptionID *string   `json:"-"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// HasBillingAccount returns true if the profile is linked to a Stripe customer.
func (p *Profile) HasBillingAccount() bool {
	return p.StripeCustomerID != nil && *p.StripeCustomerID != ""
}
