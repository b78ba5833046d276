// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	eventKeyPrefix = "stripe:event:"

	// DefaultEventTTL covers Stripe's retry window for a single event.
	DefaultEventTTL = 72 * time.Hour
)

// EventLog remembers which webhook events were already handled.
type EventLog struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventLog creates an event log backed by the given Valkey client.
func NewEventLog(client *redis.Client, ttl time.Duration) *EventLog {
	if ttl == 0 {
		ttl = DefaultEventTTL
	}
	return &EventLog{client: client, ttl: ttl}
}

// MarkProcessed claims an event id. It returns true the first time the id
// is seen and false for duplicates.
func (l *EventLog) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, eventKeyPrefix+eventID, time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("event log claim %s: %w", eventID, err)
	}
	return ok, nil
}

// Forget releases a claimed id so a redelivery is processed again. Used
// when handling the event failed after it was claimed.
func (l *EventLog) Forget(ctx context.Context, eventID string) error {
	if err := l.client.Del(ctx, eventKeyPrefix+eventID).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("event log forget %s: %w", eventID, err)
	}
	return nil
}
