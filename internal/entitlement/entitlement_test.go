// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package entitlement

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"

	"postready/internal/auth"
	"postready/internal/models"
)

// memUsage is an in-memory UsageStore.
type memUsage struct {
	mu     sync.Mutex
	counts map[uuid.UUID]map[string]int
	err    error
}

func newMemUsage() *memUsage {
	return &memUsage{counts: map[uuid.UUID]map[string]int{}}
}

func (m *memUsage) Count(_ context.Context, id uuid.UUID, tool string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.counts[id][tool], nil
}

func (m *memUsage) Increment(_ context.Context, id uuid.UUID, tool string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if m.counts[id] == nil {
		m.counts[id] = map[string]int{}
	}
	m.counts[id][tool]++
	return m.counts[id][tool], nil
}

func (m *memUsage) ListByUser(_ context.Context, id uuid.UUID) ([]models.ToolUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ToolUsage
	for tool, n := range m.counts[id] {
		out = append(out, models.ToolUsage{UserID: id, Tool: tool, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out, nil
}

// subsMap is a SubscriptionChecker backed by a map.
type subsMap struct {
	pro map[uuid.UUID]bool
	err error
}

func (s subsMap) IsPro(_ context.Context, id uuid.UUID) (bool, error) {
	return s.pro[id], s.err
}

// roundTrip carries cookies set on one response into the next request.
func roundTrip(prev *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/tools/caption-generator", nil)
	if prev != nil {
		for _, c := range prev.Result().Cookies() {
			r.AddCookie(c)
		}
	}
	return r
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name        string
		isPro       bool
		used, limit int
		allowed     bool
		remaining   int
	}{
		{"fresh caller", false, 0, 1, true, 1},
		{"at limit", false, 1, 1, false, 0},
		{"over limit", false, 5, 3, false, 0},
		{"below higher limit", false, 2, 3, true, 1},
		{"zero limit", false, 0, 0, false, 0},
		{"negative limit", false, 0, -2, false, 0},
		{"pro at limit", true, 1, 1, true, -1},
		{"pro far over limit", true, 500, 1, true, -1},
		{"pro zero limit", true, 0, 0, true, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.isPro, tt.used, tt.limit)
			if d.Allowed != tt.allowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if !d.Allowed && d.Reason != ReasonQuotaExceeded {
				t.Errorf("Reason = %q", d.Reason)
			}
			if d.Allowed && d.Reason != "" {
				t.Errorf("allowed decision carries reason %q", d.Reason)
			}
			if got := d.Remaining(); got != tt.remaining {
				t.Errorf("Remaining = %d, want %d", got, tt.remaining)
			}
		})
	}
}

// TestDecide_NthAllowedIffWithinLimit runs the whole use sequence for
// several limits: the Nth success is allowed iff N <= limit.
func TestDecide_NthAllowedIffWithinLimit(t *testing.T) {
	for limit := 0; limit <= 5; limit++ {
		used := 0
		for n := 1; n <= limit+3; n++ {
			d := Decide(false, used, limit)
			if d.Allowed != (n <= limit) {
				t.Fatalf("limit %d attempt %d: Allowed = %v", limit, n, d.Allowed)
			}
			if d.Allowed {
				used++
			}
		}
		if used != limit {
			t.Errorf("limit %d: %d successes", limit, used)
		}
	}
}

func TestGate_AnonymousCookieFlow(t *testing.T) {
	g := NewGate(newMemUsage(), subsMap{}, true)
	anon := auth.Identity{}

	// First call: allowed, committed, cookie set.
	w1 := httptest.NewRecorder()
	ticket, d, err := g.Admit(w1, roundTrip(nil), anon, "caption-generator", 1)
	if err != nil {
		t.Fatalf("Admit #1: %v", err)
	}
	if !d.Allowed || d.Used != 0 {
		t.Errorf("decision #1 = %+v", d)
	}
	if err := ticket.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	cookies := w1.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "pr_usage_caption-generator" || c.Value != "1" {
		t.Errorf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
		t.Errorf("cookie attributes = %+v", c)
	}
	if c.MaxAge < 3*365*24*3600 {
		t.Errorf("MaxAge = %d, want about three years", c.MaxAge)
	}

	// Second call with the cookie: denied.
	w2 := httptest.NewRecorder()
	ticket, d, err = g.Admit(w2, roundTrip(w1), anon, "caption-generator", 1)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Admit #2 error = %v, want ErrQuotaExceeded", err)
	}
	if ticket != nil || d.Allowed || d.Used != 1 {
		t.Errorf("Admit #2 = (%v, %+v)", ticket, d)
	}

	// Another tool is counted separately.
	if _, _, err := g.Admit(httptest.NewRecorder(), roundTrip(w1), anon, "hook-generator", 1); err != nil {
		t.Errorf("other tool should be allowed: %v", err)
	}
}

func TestGate_UncommittedTicketDoesNotCount(t *testing.T) {
	usage := newMemUsage()
	g := NewGate(usage, subsMap{}, false)
	acct := auth.Identity{AccountID: uuid.New()}

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		if _, _, err := g.Admit(httptest.NewRecorder(), r, acct, "viral-ideas", 1); err != nil {
			t.Fatalf("Admit attempt %d after failed work: %v", i, err)
		}
		// The upstream call failed: no Commit.
	}
	if n, _ := usage.Count(context.Background(), acct.AccountID, "viral-ideas"); n != 0 {
		t.Errorf("counter = %d after uncommitted tickets, want 0", n)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	anonTicket, _, err := g.Admit(w, r, auth.Identity{}, "viral-ideas", 1)
	if err != nil {
		t.Fatalf("anonymous Admit: %v", err)
	}
	_ = anonTicket
	if len(w.Result().Cookies()) != 0 {
		t.Error("uncommitted anonymous ticket must not set a cookie")
	}
}

func TestGate_AccountLimit(t *testing.T) {
	usage := newMemUsage()
	g := NewGate(usage, subsMap{}, false)
	acct := auth.Identity{AccountID: uuid.New()}
	ctx := context.Background()

	for n := 1; n <= 4; n++ {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		ticket, _, err := g.Admit(httptest.NewRecorder(), r, acct, "hashtag-generator", 3)
		if n <= 3 {
			if err != nil {
				t.Fatalf("attempt %d: %v", n, err)
			}
			if err := ticket.Commit(ctx); err != nil {
				t.Fatalf("Commit %d: %v", n, err)
			}
			continue
		}
		if !errors.Is(err, ErrQuotaExceeded) {
			t.Errorf("attempt %d error = %v, want ErrQuotaExceeded", n, err)
		}
	}
}

func TestGate_ProNeverDenied(t *testing.T) {
	usage := newMemUsage()
	id := uuid.New()
	g := NewGate(usage, subsMap{pro: map[uuid.UUID]bool{id: true}}, false)
	acct := auth.Identity{AccountID: id}

	for n := 1; n <= 10; n++ {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		ticket, d, err := g.Admit(httptest.NewRecorder(), r, acct, "caption-generator", 1)
		if err != nil {
			t.Fatalf("pro attempt %d denied: %v", n, err)
		}
		if !d.Unlimited {
			t.Errorf("decision should be unlimited: %+v", d)
		}
		if err := ticket.Commit(context.Background()); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}
	if n, _ := usage.Count(context.Background(), id, "caption-generator"); n != 10 {
		t.Errorf("pro usage still recorded: got %d, want 10", n)
	}
}

func TestGate_IdentityClassesIndependent(t *testing.T) {
	usage := newMemUsage()
	g := NewGate(usage, subsMap{}, false)
	acct := auth.Identity{AccountID: uuid.New()}
	ctx := context.Background()

	// Anonymous caller uses up the cookie quota.
	w := httptest.NewRecorder()
	ticket, _, err := g.Admit(w, roundTrip(nil), auth.Identity{}, "bio-generator", 1)
	if err != nil {
		t.Fatalf("anonymous Admit: %v", err)
	}
	ticket.Commit(ctx)

	// Same browser signs in: the account counter is untouched.
	r := roundTrip(w)
	ticket, _, err = g.Admit(httptest.NewRecorder(), r, acct, "bio-generator", 1)
	if err != nil {
		t.Fatalf("account should not inherit the cookie count: %v", err)
	}
	ticket.Commit(ctx)

	// Account exhausted; a fresh anonymous caller is still allowed.
	if _, _, err := g.Admit(httptest.NewRecorder(), roundTrip(nil), acct, "bio-generator", 1); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("account second use error = %v", err)
	}
	if _, _, err := g.Admit(httptest.NewRecorder(), roundTrip(nil), auth.Identity{}, "bio-generator", 1); err != nil {
		t.Errorf("fresh anonymous caller denied: %v", err)
	}
}

func TestGate_Errors(t *testing.T) {
	boom := errors.New("db down")
	acct := auth.Identity{AccountID: uuid.New()}

	g := NewGate(newMemUsage(), subsMap{err: boom}, false)
	if _, _, err := g.Admit(httptest.NewRecorder(), roundTrip(nil), acct, "t", 1); !errors.Is(err, boom) {
		t.Errorf("subscription error not propagated: %v", err)
	}

	usage := newMemUsage()
	usage.err = boom
	g = NewGate(usage, subsMap{}, false)
	if _, _, err := g.Admit(httptest.NewRecorder(), roundTrip(nil), acct, "t", 1); !errors.Is(err, boom) {
		t.Errorf("count error not propagated: %v", err)
	}
}

func TestTicket_CommitOnce(t *testing.T) {
	usage := newMemUsage()
	g := NewGate(usage, subsMap{}, false)
	acct := auth.Identity{AccountID: uuid.New()}
	ctx := context.Background()

	ticket, _, err := g.Admit(httptest.NewRecorder(), roundTrip(nil), acct, "hook-generator", 5)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	ticket.Commit(ctx)
	ticket.Commit(ctx)

	if n, _ := usage.Count(ctx, acct.AccountID, "hook-generator"); n != 1 {
		t.Errorf("count = %d after double commit, want 1", n)
	}
}

func TestCookieCounter(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 0},
		{"0", 0},
		{"2", 2},
		{" 3 ", 3},
		{"-4", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.value != "" {
			r.AddCookie(&http.Cookie{Name: CookieName("x"), Value: tt.value})
		}
		if got := ReadCookieCount(r, "x"); got != tt.want {
			t.Errorf("ReadCookieCount(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName("x"), Value: "2"})
	w := httptest.NewRecorder()
	c := NewCookieCounter(w, r, false)
	ctx := context.Background()
	c.Increment(ctx, "x")
	if n, _ := c.Count(ctx, "x"); n != 3 {
		t.Errorf("Count after Increment = %d, want 3", n)
	}
	if ck := w.Result().Cookies()[0]; ck.Secure {
		t.Error("cookie should not be Secure when disabled")
	}
}

func TestSummarize(t *testing.T) {
	limits := map[string]int{"caption-generator": 1, "hashtag-generator": 3}
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		g := NewGate(newMemUsage(), subsMap{}, false)
		r := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
		r.AddCookie(&http.Cookie{Name: CookieName("hashtag-generator"), Value: "2"})

		s, err := g.Summarize(r, auth.Identity{}, limits)
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if !s.Anonymous || s.IsPro {
			t.Errorf("summary flags = %+v", s)
		}
		if got := s.Tools["hashtag-generator"]; got != (ToolUsage{Used: 2, Limit: 3, Remaining: 1}) {
			t.Errorf("hashtag usage = %+v", got)
		}
		if got := s.Tools["caption-generator"]; got != (ToolUsage{Used: 0, Limit: 1, Remaining: 1}) {
			t.Errorf("caption usage = %+v", got)
		}
	})

	t.Run("account", func(t *testing.T) {
		usage := newMemUsage()
		id := uuid.New()
		usage.Increment(ctx, id, "caption-generator")
		g := NewGate(usage, subsMap{}, false)

		s, err := g.Summarize(httptest.NewRequest(http.MethodGet, "/", nil), auth.Identity{AccountID: id}, limits)
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if got := s.Tools["caption-generator"]; got.Used != 1 || got.Remaining != 0 {
			t.Errorf("caption usage = %+v", got)
		}
	})

	t.Run("pro", func(t *testing.T) {
		id := uuid.New()
		g := NewGate(newMemUsage(), subsMap{pro: map[uuid.UUID]bool{id: true}}, false)

		s, err := g.Summarize(httptest.NewRequest(http.MethodGet, "/", nil), auth.Identity{AccountID: id}, limits)
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if !s.IsPro || s.Tools["caption-generator"].Remaining != -1 {
			t.Errorf("pro summary = %+v", s)
		}
	})
}

// memProfiles is an in-memory ProfileFinder.
type memProfiles struct {
	profiles map[uuid.UUID]*models.Profile
	calls    int
}

func (m *memProfiles) FindByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	m.calls++
	return m.profiles[id], nil
}

// memFlags is an in-memory FlagCache.
type memFlags map[uuid.UUID]bool

func (m memFlags) Get(_ context.Context, id uuid.UUID) (bool, bool) {
	v, ok := m[id]
	return v, ok
}

func (m memFlags) Fill(_ context.Context, id uuid.UUID, isPro bool) {
	if _, ok := m[id]; !ok {
		m[id] = isPro
	}
}

// racingProfiles returns a stale profile while a webhook writes the new
// flag into the cache during the lookup.
type racingProfiles struct {
	stale   *models.Profile
	webhook func()
}

func (r *racingProfiles) FindByID(context.Context, uuid.UUID) (*models.Profile, error) {
	r.webhook()
	return r.stale, nil
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	pro := uuid.New()
	free := uuid.New()
	missing := uuid.New()
	profiles := &memProfiles{profiles: map[uuid.UUID]*models.Profile{
		pro:  {ID: pro, IsPro: true},
		free: {ID: free},
	}}

	t.Run("without cache", func(t *testing.T) {
		s := NewSubscriptions(profiles, nil)
		for id, want := range map[uuid.UUID]bool{pro: true, free: false, missing: false} {
			got, err := s.IsPro(ctx, id)
			if err != nil || got != want {
				t.Errorf("IsPro(%v) = (%v, %v), want %v", id, got, err, want)
			}
		}
	})

	t.Run("read-through cache", func(t *testing.T) {
		profiles.calls = 0
		flags := memFlags{}
		s := NewSubscriptions(profiles, flags)

		s.IsPro(ctx, pro)
		s.IsPro(ctx, pro)
		if profiles.calls != 1 {
			t.Errorf("profile loads = %d, want 1", profiles.calls)
		}
		if v, ok := flags[pro]; !ok || !v {
			t.Errorf("flag not cached: %v %v", v, ok)
		}
	})
}

func TestSubscriptions_StaleReadDoesNotOverwriteWebhook(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	flags := memFlags{}
	profiles := &racingProfiles{
		stale:   &models.Profile{ID: id, IsPro: false},
		webhook: func() { flags[id] = true },
	}
	s := NewSubscriptions(profiles, flags)

	if _, err := s.IsPro(ctx, id); err != nil {
		t.Fatalf("IsPro: %v", err)
	}
	got, err := s.IsPro(ctx, id)
	if err != nil {
		t.Fatalf("IsPro: %v", err)
	}
	if !got {
		t.Error("the stale read replaced the flag written by the webhook")
	}
}
