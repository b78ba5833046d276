// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"postready/internal/models"
)

// ProfileFinder loads a profile by account id; nil means no profile yet.
type ProfileFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// FlagCache caches the subscription flag per account. Fill must not
// replace an entry written since the miss.
type FlagCache interface {
	Get(ctx context.Context, id uuid.UUID) (isPro, ok bool)
	Fill(ctx context.Context, id uuid.UUID, isPro bool)
}

// Subscriptions reads the subscription flag from profiles, through an
// optional cache.
type Subscriptions struct {
	profiles ProfileFinder
	cache    FlagCache
}

// NewSubscriptions creates a checker. cache may be nil.
func NewSubscriptions(profiles ProfileFinder, cache FlagCache) *Subscriptions {
	return &Subscriptions{profiles: profiles, cache: cache}
}

// IsPro reports the account's subscription flag. An account without a
// profile row is not subscribed.
func (s *Subscriptions) IsPro(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.cache != nil {
		if isPro, ok := s.cache.Get(ctx, id); ok {
			return isPro, nil
		}
	}

	p, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load profile: %w", err)
	}
	isPro := p != nil && p.IsPro

	if s.cache != nil {
		s.cache.Fill(ctx, id, isPro)
	}
	return isPro, nil
}
