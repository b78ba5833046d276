// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package entitlement

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"postready/internal/models"
)

// Counter tracks successful generations per tool for one caller.
type Counter interface {
	Count(ctx context.Context, tool string) (int, error)
	Increment(ctx context.Context, tool string) error
}

// UsageStore persists account counters.
type UsageStore interface {
	Count(ctx context.Context, userID uuid.UUID, tool string) (int, error)
	Increment(ctx context.Context, userID uuid.UUID, tool string) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ToolUsage, error)
}

// AccountCounter is the store-backed counter for a signed-in account.
type AccountCounter struct {
	store UsageStore
	id    uuid.UUID
}

// NewAccountCounter returns the counter for account id.
func NewAccountCounter(store UsageStore, id uuid.UUID) *AccountCounter {
	return &AccountCounter{store: store, id: id}
}

func (c *AccountCounter) Count(ctx context.Context, tool string) (int, error) {
	n, err := c.store.Count(ctx, c.id, tool)
	if err != nil {
		return 0, fmt.Errorf("account usage %s: %w", tool, err)
	}
	return n, nil
}

func (c *AccountCounter) Increment(ctx context.Context, tool string) error {
	if _, err := c.store.Increment(ctx, c.id, tool); err != nil {
		return fmt.Errorf("account usage %s increment: %w", tool, err)
	}
	return nil
}

const (
	// CookiePrefix is prepended to the tool name to form the cookie name.
	CookiePrefix = "pr_usage_"

	// cookieMaxAge keeps anonymous counters around for three years.
	cookieMaxAge = 3 * 365 * 24 * time.Hour
)

// CookieName returns the anonymous counter cookie for a tool.
func CookieName(tool string) string {
	return CookiePrefix + tool
}

// CookieCounter keeps an anonymous caller's counters in cookies. Counts are
// read from the request; increments are written to the response and
// remembered so a later Count in the same request sees them. Values that do
// not parse as a non-negative integer count as zero, the same as a cleared
// cookie.
type CookieCounter struct {
	r      *http.Request
	w      http.ResponseWriter
	secure bool
	set    map[string]int
}

// NewCookieCounter returns the cookie counter for one request/response pair.
// secure marks the cookies Secure (HTTPS only).
func NewCookieCounter(w http.ResponseWriter, r *http.Request, secure bool) *CookieCounter {
	return &CookieCounter{r: r, w: w, secure: secure, set: map[string]int{}}
}

func (c *CookieCounter) Count(_ context.Context, tool string) (int, error) {
	if n, ok := c.set[tool]; ok {
		return n, nil
	}
	return ReadCookieCount(c.r, tool), nil
}

func (c *CookieCounter) Increment(ctx context.Context, tool string) error {
	n, _ := c.Count(ctx, tool)
	n++
	c.set[tool] = n
	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName(tool),
		Value:    strconv.Itoa(n),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ReadCookieCount returns the anonymous count for tool carried by r.
func ReadCookieCount(r *http.Request, tool string) int {
	ck, err := r.Cookie(CookieName(tool))
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(ck.Value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
