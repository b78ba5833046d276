// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postready/internal/ai"
	"postready/internal/auth"
	"postready/internal/billing"
	"postready/internal/cache"
	"postready/internal/config"
	"postready/internal/database"
	"postready/internal/entitlement"
	"postready/internal/handlers"
	"postready/internal/middleware"
	"postready/internal/router"
	"postready/internal/storage"
	"postready/internal/store"
	"postready/internal/tools"
)

var providerOverride string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&providerOverride, "provider", "", "text provider to activate instead of AI_PROVIDER")
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	catalog, err := tools.Load()
	if err != nil {
		return fmt.Errorf("load tool catalog: %w", err)
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	// Valkey backs the subscription flag cache and webhook de-duplication.
	// The API runs without it.
	var (
		flagCache   entitlement.FlagCache
		flagWriter  billing.FlagWriter
		events      handlers.EventLog
	)
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unavailable, running without cache", "error", err)
	} else {
		defer valkeyClient.Close()
		profileCache := cache.NewProfileCache(valkeyClient, cache.DefaultProfileTTL)
		flagCache, flagWriter = profileCache, profileCache
		events = cache.NewEventLog(valkeyClient, cache.DefaultEventTTL)
	}

	profiles := store.NewProfileStore(db)
	usage := store.NewUsageStore(db)

	registry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		"gemini":  {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, BaseURL: cfg.GeminiBaseURL},
		"claude":  {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, BaseURL: cfg.ClaudeBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, BaseURL: cfg.MistralBaseURL},
	})
	if err := selectProvider(registry, providerOverride); err != nil {
		return err
	}
	if !registry.HasProvider(registry.ActiveName()) {
		slog.Warn("active ai provider has no api key, text tools will fail", "provider", registry.ActiveName())
	}
	slog.Info("ai providers initialized", "active", registry.ActiveName(), "available", registry.Available())

	deps := handlers.Deps{
		Catalog:    catalog,
		Gate:       entitlement.NewGate(usage, entitlement.NewSubscriptions(profiles, flagCache), !cfg.IsDev()),
		Text:       registry,
		Profiles:   profiles,
		Moderation: registry,
		Events:     events,
	}

	if speech, err := newSynthesizer(cfg); err != nil {
		slog.Warn("speech synthesis disabled", "error", err)
	} else {
		deps.Speech = speech
		slog.Info("speech synthesis enabled", "provider", speech.Name())
	}

	archive, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		return fmt.Errorf("initialize s3 storage: %w", err)
	}
	if archive != nil {
		deps.Archive = archive
		deps.Voiceovers = store.NewVoiceoverStore(db)
		slog.Info("voiceover archive enabled", "endpoint", cfg.S3Endpoint, "bucket", archive.Bucket())
	} else {
		slog.Warn("s3 storage not configured, voiceovers will not be archived")
	}

	if cfg.BillingEnabled() {
		stripeClient, err := billing.NewStripe(billing.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			PriceID:       cfg.StripePriceID,
			AppURL:        cfg.AppURL,
		})
		if err != nil {
			return fmt.Errorf("initialize stripe: %w", err)
		}
		deps.Billing = stripeClient
		deps.Reconciler = billing.NewReconciler(profiles, flagWriter)
		slog.Info("stripe billing enabled")
	} else {
		slog.Warn("stripe not configured, upgrades disabled")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute, cfg.TrustedProxies...)
	defer limiter.Stop()

	r := router.New(handlers.New(deps), router.Options{
		Verifier:    auth.NewVerifier(cfg.SupabaseJWTSecret),
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
	})

	// WriteTimeout must cover a speech call (up to 90s) plus the archive upload.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return listenAndServe(ctx, srv)
}

// listenAndServe runs srv until SIGINT or SIGTERM, then drains connections.
func listenAndServe(ctx context.Context, srv *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received")

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}

func newSynthesizer(cfg *config.Config) (ai.Synthesizer, error) {
	switch cfg.SpeechProvider {
	case "openai":
		return ai.NewSynthesizer("openai", ai.SpeechConfig{
			APIKey:       cfg.OpenAIKey,
			Model:        cfg.OpenAISpeechModel,
			BaseURL:      cfg.OpenAIBaseURL,
			DefaultVoice: cfg.DefaultVoiceID,
		})
	default:
		return ai.NewSynthesizer(cfg.SpeechProvider, ai.SpeechConfig{
			APIKey:       cfg.ElevenLabsKey,
			Model:        cfg.ElevenLabsModel,
			BaseURL:      cfg.ElevenLabsBaseURL,
			DefaultVoice: cfg.DefaultVoiceID,
		})
	}
}

// selectProvider switches the registry to name. An empty name keeps the
// configured provider.
func selectProvider(registry *ai.Registry, name string) error {
	if name == "" {
		return nil
	}
	if err := registry.SetActive(name); err != nil {
		return fmt.Errorf("--provider: %w", err)
	}
	return nil
}
