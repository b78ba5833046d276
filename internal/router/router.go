// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// PostReady API. Routes are split into open, generation (rate limited) and
// account-only groups.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"postready/internal/handlers"
	"postready/internal/middleware"
)

// Options carries the router's middleware dependencies.
type Options struct {
	Verifier    middleware.IdentityVerifier
	Limiter     *middleware.RateLimiter // nil disables rate limiting
	CORSOrigins []string
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(api *handlers.API, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(corsHandler(opts.CORSOrigins))

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		// Stripe calls this directly; the signature is the credential.
		r.Post("/webhooks/stripe", api.StripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.LoadIdentity(opts.Verifier))

			r.Get("/tools", api.ListTools)
			r.Get("/usage", api.Usage)

			// Generation routes call paid upstream APIs.
			r.Group(func(r chi.Router) {
				if opts.Limiter != nil {
					r.Use(opts.Limiter.Middleware)
				}
				r.Post("/tools/{tool}", api.RunTool)
				r.Post("/voiceover", api.Voiceover)
				r.Post("/post/starter", api.PostStarter)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAccount)
				r.Get("/me", api.Me)
				r.Get("/voiceovers", api.ListVoiceovers)
				r.Post("/billing/checkout", api.Checkout)
				r.Post("/billing/portal", api.Portal)
			})
		})
	})

	return r
}

// corsHandler allows the configured browser origins to call the API with
// credentials. Requests without an Origin header pass through untouched.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition", "X-Voiceover-URL", "X-Usage-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	})
	return c.Handler
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
