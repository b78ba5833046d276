// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all PostReady
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"postready/internal/models"
)

const profileColumns = `id, email, is_pro, stripe_customer_id, stripe_subscription_id, created_at, updated_at`

// ProfileStore handles all profile-related database operations.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a new ProfileStore with the given database connection.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(row interface{ Scan(...any) error }) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(
		&p.ID, &p.Email, &p.IsPro, &p.StripeCustomerID, &p.StripeSubscriptionID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID retrieves a profile by the account's UUID. Returns nil if not found.
func (s *ProfileStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return p, nil
}

// FindByCustomerID retrieves the profile linked to a Stripe customer.
// Returns nil if no profile carries that customer id.
func (s *ProfileStore) FindByCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE stripe_customer_id = $1`, customerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile by customer id: %w", err)
	}
	return p, nil
}

// Ensure returns the profile for id, creating it on first sight. A non-empty
// email replaces the stored one so the profile tracks the auth provider.
func (s *ProfileStore) Ensure(ctx context.Context, id uuid.UUID, email string) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE profiles.email END,
		    updated_at = CASE WHEN EXCLUDED.email <> '' AND EXCLUDED.email <> profiles.email
		                      THEN NOW() ELSE profiles.updated_at END
		RETURNING `+profileColumns, id, email))
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return p, nil
}

// SetCustomerID links a profile to a Stripe customer, creating the profile
// row if the webhook arrives before the account ever called the API.
func (s *ProfileStore) SetCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, stripe_customer_id)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET stripe_customer_id = EXCLUDED.stripe_customer_id, updated_at = NOW()
	`, id, customerID)
	if err != nil {
		return fmt.Errorf("set stripe customer id: %w", err)
	}
	return nil
}

// SetSubscription records the subscription flag and the subscription id
// (nil clears it). Creates the profile row if needed.
func (s *ProfileStore) SetSubscription(ctx context.Context, id uuid.UUID, isPro bool, subscriptionID *string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, is_pro, stripe_subscription_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET is_pro = EXCLUDED.is_pro,
		    stripe_subscription_id = EXCLUDED.stripe_subscription_id,
		    updated_at = NOW()
	`, id, isPro, subscriptionID)
	if err != nil {
		return fmt.Errorf("set subscription: %w", err)
	}
	return nil
}
