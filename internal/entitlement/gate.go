// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"postready/internal/auth"
)

// SubscriptionChecker reports whether an account has an active subscription.
type SubscriptionChecker interface {
	IsPro(ctx context.Context, id uuid.UUID) (bool, error)
}

// Gate is the single entitlement check shared by every tool.
type Gate struct {
	usage         UsageStore
	subs          SubscriptionChecker
	secureCookies bool
}

// NewGate creates a gate. secureCookies marks anonymous counter cookies
// Secure; it is off only in development.
func NewGate(usage UsageStore, subs SubscriptionChecker, secureCookies bool) *Gate {
	return &Gate{usage: usage, subs: subs, secureCookies: secureCookies}
}

// CounterFor returns the counter matching the caller's identity class.
// Account and anonymous counters never share state.
func (g *Gate) CounterFor(w http.ResponseWriter, r *http.Request, id auth.Identity) Counter {
	if id.Anonymous() {
		return NewCookieCounter(w, r, g.secureCookies)
	}
	return NewAccountCounter(g.usage, id.AccountID)
}

// Ticket is an admitted request. Commit records the use once the gated
// work has succeeded; a ticket that is never committed leaves the counter
// unchanged.
type Ticket struct {
	Decision Decision
	tool     string
	counter  Counter
	done     bool
}

// Commit increments the caller's counter by one. Calling it again is a no-op.
func (t *Ticket) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	if err := t.counter.Increment(ctx, t.tool); err != nil {
		return err
	}
	t.done = true
	return nil
}

// Admit checks whether the caller may run tool with the given free limit.
// On success it returns a ticket to commit after the work succeeds. When
// the limit is used up it returns ErrQuotaExceeded along with the deciding
// Decision (the ticket is nil).
func (g *Gate) Admit(w http.ResponseWriter, r *http.Request, id auth.Identity, tool string, limit int) (*Ticket, Decision, error) {
	ctx := r.Context()

	isPro := false
	if !id.Anonymous() {
		var err error
		isPro, err = g.subs.IsPro(ctx, id.AccountID)
		if err != nil {
			return nil, Decision{}, fmt.Errorf("subscription lookup: %w", err)
		}
	}

	counter := g.CounterFor(w, r, id)
	used, err := counter.Count(ctx, tool)
	if err != nil {
		return nil, Decision{}, err
	}

	d := Decide(isPro, used, limit)
	if !d.Allowed {
		slog.Info("entitlement denied",
			"tool", tool,
			"anonymous", id.Anonymous(),
			"used", d.Used,
			"limit", d.Limit,
		)
		return nil, d, ErrQuotaExceeded
	}

	return &Ticket{Decision: d, tool: tool, counter: counter}, d, nil
}

// ToolUsage is one row of a usage summary.
type ToolUsage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"` // -1 when unlimited
}

// Summary is the caller's usage across every tool.
type Summary struct {
	Anonymous bool                 `json:"anonymous"`
	IsPro     bool                 `json:"isPro"`
	Tools     map[string]ToolUsage `json:"tools"`
}

// Summarize reports usage for every tool in limits for the caller's
// identity class.
func (g *Gate) Summarize(r *http.Request, id auth.Identity, limits map[string]int) (*Summary, error) {
	ctx := r.Context()
	s := &Summary{Anonymous: id.Anonymous(), Tools: make(map[string]ToolUsage, len(limits))}

	used := make(map[string]int, len(limits))
	if id.Anonymous() {
		for tool := range limits {
			used[tool] = ReadCookieCount(r, tool)
		}
	} else {
		isPro, err := g.subs.IsPro(ctx, id.AccountID)
		if err != nil {
			return nil, fmt.Errorf("subscription lookup: %w", err)
		}
		s.IsPro = isPro

		rows, err := g.usage.ListByUser(ctx, id.AccountID)
		if err != nil {
			return nil, fmt.Errorf("list usage: %w", err)
		}
		for _, row := range rows {
			used[row.Tool] = row.Count
		}
	}

	for tool, limit := range limits {
		d := Decide(s.IsPro, used[tool], limit)
		s.Tools[tool] = ToolUsage{Used: d.Used, Limit: d.Limit, Remaining: d.Remaining()}
	}
	return s, nil
}
