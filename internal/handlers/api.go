// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the PostReady JSON API. Every generation
// endpoint runs the same pipeline: validate the body against the tool's
// schema, screen it with moderation, pass the entitlement gate, call the
// upstream provider and, only once that succeeds, record the use.
package handlers

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"postready/internal/ai"
	"postready/internal/billing"
	"postready/internal/entitlement"
	"postready/internal/models"
	"postready/internal/tools"
)

// maxBodyBytes caps JSON request bodies on the tool endpoints.
const maxBodyBytes = 64 << 10

// Generator produces text for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, p ai.Prompt) (string, error)
}

// Moderator screens user input before it reaches a provider.
type Moderator interface {
	CheckPrompt(ctx context.Context, text string) (*ai.ModerationResult, error)
}

// ProfileStore loads and creates account profiles.
type ProfileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Ensure(ctx context.Context, id uuid.UUID, email string) (*models.Profile, error)
}

// VoiceoverRecords persists archived voiceover metadata.
type VoiceoverRecords interface {
	Create(ctx context.Context, v *models.Voiceover) (*models.Voiceover, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Voiceover, error)
}

// Archive stores voiceover audio.
type Archive interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Billing is the payment provider surface the API uses.
type Billing interface {
	CreateCheckout(ctx context.Context, in billing.CheckoutInput) (string, error)
	CreatePortal(ctx context.Context, customerID string) (string, error)
	ParseWebhook(payload []byte, signature string) (*billing.Event, error)
}

// EventApplier applies a verified billing event to the account.
type EventApplier interface {
	Apply(ctx context.Context, ev *billing.Event) error
}

// EventLog de-duplicates webhook deliveries.
type EventLog interface {
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Deps holds everything the API handlers need. Optional collaborators may
// be nil: Moderation (no screening), Speech (voiceover disabled), Archive
// and Voiceovers (no archive), Billing/Reconciler (billing disabled),
// Events (no de-duplication).
type Deps struct {
	Catalog  *tools.Catalog
	Gate     *entitlement.Gate
	Text     Generator
	Profiles ProfileStore

	Moderation Moderator
	Speech     ai.Synthesizer
	Archive    Archive
	Voiceovers VoiceoverRecords
	Billing    Billing
	Reconciler EventApplier
	Events     EventLog

	// Seed returns the seed for post starter randomness. Defaults to the
	// current time.
	Seed func() int64
}

// API serves the JSON endpoints.
type API struct {
	Deps

	randMu sync.Mutex
	rng    *rand.Rand
}

// New creates the API handlers.
func New(deps Deps) *API {
	if deps.Seed == nil {
		deps.Seed = func() int64 { return time.Now().UnixNano() }
	}
	return &API{Deps: deps, rng: rand.New(rand.NewSource(deps.Seed()))}
}

// withRand runs fn with the shared random source held.
func (a *API) withRand(fn func(*rand.Rand)) {
	a.randMu.Lock()
	defer a.randMu.Unlock()
	fn(a.rng)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
