// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// profile.go caches the per-account subscription flag in Valkey so every
// gated request does not hit Postgres for the profile lookup. The billing
// webhook overwrites an entry whenever the flag changes; read-through fills
// never replace an existing entry, so a slow database read cannot undo it.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// proKeyPrefix is the Valkey key prefix for cached subscription flags.
	proKeyPrefix = "profile:pro:"

	// DefaultProfileTTL bounds how stale a cached flag can be if a
	// webhook write is ever missed.
	DefaultProfileTTL = 60 * time.Second
)

// ProfileCache stores the is_pro flag per account.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProfileCache creates a new profile cache backed by the given Valkey client.
func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	if ttl == 0 {
		ttl = DefaultProfileTTL
	}
	return &ProfileCache{client: client, ttl: ttl}
}

// Get returns the cached flag and whether it was present. Cache errors are
// logged and reported as a miss.
func (pc *ProfileCache) Get(ctx context.Context, id uuid.UUID) (isPro, ok bool) {
	val, err := pc.client.Get(ctx, proKeyPrefix+id.String()).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		slog.Warn("profile cache get error", "account", id, "error", err)
		return false, false
	}
	return val == "1", true
}

// Set stores the flag with the configured TTL, replacing any entry.
func (pc *ProfileCache) Set(ctx context.Context, id uuid.UUID, isPro bool) {
	val := "0"
	if isPro {
		val = "1"
	}
	if err := pc.client.Set(ctx, proKeyPrefix+id.String(), val, pc.ttl).Err(); err != nil {
		slog.Warn("profile cache set error", "account", id, "error", err)
	}
}

// Fill stores the flag only when no entry exists yet.
func (pc *ProfileCache) Fill(ctx context.Context, id uuid.UUID, isPro bool) {
	val := "0"
	if isPro {
		val = "1"
	}
	if err := pc.client.SetNX(ctx, proKeyPrefix+id.String(), val, pc.ttl).Err(); err != nil {
		slog.Warn("profile cache fill error", "account", id, "error", err)
	}
}
