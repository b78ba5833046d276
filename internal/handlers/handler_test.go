// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure: in-memory fakes for
// every collaborator and a chi mux wired like the production router.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"postready/internal/ai"
	"postready/internal/auth"
	"postready/internal/billing"
	"postready/internal/entitlement"
	"postready/internal/middleware"
	"postready/internal/models"
	"postready/internal/tools"
)

const testSecret = "handlers-test-secret"

// captionJSON is a well-formed caption-generator answer.
const captionJSON = `{"captions":[{"text":"Morning ritual, perfected.","style":"one-liner"},{"text":"What is your go-to brew?","style":"question"}]}`

// --- fakes ---

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

func (m *memUsage) get(id uuid.UUID, tool string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[id][tool]
}

type memProfiles struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Profile
	err  error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byID: map[uuid.UUID]*models.Profile{}}
}

func (m *memProfiles) FindByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) Ensure(_ context.Context, id uuid.UUID, email string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		p = &models.Profile{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		m.byID[id] = p
	}
	if email != "" {
		p.Email = email
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) put(p *models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = p
}

type fakeText struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	last     ai.Prompt
}

func (f *fakeText) Generate(_ context.Context, p ai.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = p
	return f.response, f.err
}

type fakeModerator struct {
	result *ai.ModerationResult
	err    error
	seen   []string
}

func (f *fakeModerator) CheckPrompt(_ context.Context, text string) (*ai.ModerationResult, error) {
	f.seen = append(f.seen, text)
	return f.result, f.err
}

type fakeSpeech struct {
	audio *ai.Audio
	err   error
	calls int
	voice string
}

func (f *fakeSpeech) Name() string { return "fake" }

func (f *fakeSpeech) Synthesize(_ context.Context, _ string, voiceID string) (*ai.Audio, error) {
	f.calls++
	f.voice = voiceID
	return f.audio, f.err
}

type fakeArchive struct {
	objects   map[string][]byte
	uploadErr error
	deleted   []string
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: map[string][]byte{}}
}

func (f *fakeArchive) Upload(_ context.Context, key, _ string, data []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeArchive) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeArchive) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.example.com/voiceovers/" + key + "?X-Amz-Signature=abc", nil
}

type memVoiceovers struct {
	rows []models.Voiceover
	err  error
}

func (m *memVoiceovers) Create(_ context.Context, v *models.Voiceover) (*models.Voiceover, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := *v
	out.ID = uuid.New()
	out.CreatedAt = time.Now()
	m.rows = append(m.rows, out)
	return &out, nil
}

func (m *memVoiceovers) ListByUser(_ context.Context, id uuid.UUID, limit int) ([]models.Voiceover, error) {
	var out []models.Voiceover
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].UserID == id {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

type fakeBilling struct {
	checkoutURL string
	checkoutErr error
	lastInput   billing.CheckoutInput
	portalURL   string
	portalFor   string
	event       *billing.Event
	parseErr    error
}

func (f *fakeBilling) CreateCheckout(_ context.Context, in billing.CheckoutInput) (string, error) {
	f.lastInput = in
	return f.checkoutURL, f.checkoutErr
}

func (f *fakeBilling) CreatePortal(_ context.Context, customerID string) (string, error) {
	f.portalFor = customerID
	return f.portalURL, nil
}

func (f *fakeBilling) ParseWebhook(_ []byte, signature string) (*billing.Event, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	if signature == "" {
		return nil, billing.ErrInvalidSignature
	}
	return f.event, nil
}

type fakeReconciler struct {
	applied []string
	err     error
}

func (f *fakeReconciler) Apply(_ context.Context, ev *billing.Event) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, ev.ID)
	return nil
}

type memEvents struct {
	seen      map[string]bool
	forgotten []string
	err       error
}

func (m *memEvents) MarkProcessed(_ context.Context, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func (m *memEvents) Forget(_ context.Context, id string) error {
	delete(m.seen, id)
	m.forgotten = append(m.forgotten, id)
	return nil
}

// --- environment ---

type testEnv struct {
	api        *API
	mux        http.Handler
	usage      *memUsage
	profiles   *memProfiles
	text       *fakeText
	moderation *fakeModerator
	speech     *fakeSpeech
	archive    *fakeArchive
	voiceovers *memVoiceovers
	billing    *fakeBilling
	reconciler *fakeReconciler
	events     *memEvents
}

// newTestEnv wires every handler against fakes. mutate may adjust the
// dependencies before the API is built.
func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()

	catalog, err := tools.Load()
	if err != nil {
		t.Fatalf("tools.Load: %v", err)
	}

	env := &testEnv{
		usage:      newMemUsage(),
		profiles:   newMemProfiles(),
		text:       &fakeText{response: captionJSON},
		moderation: &fakeModerator{result: &ai.ModerationResult{Safe: true}},
		speech:     &fakeSpeech{audio: &ai.Audio{Data: []byte("ID3-fake-mp3"), ContentType: "audio/mpeg"}},
		archive:    newFakeArchive(),
		voiceovers: &memVoiceovers{},
		billing:    &fakeBilling{checkoutURL: "https://checkout.stripe.com/c/pay/cs_1", portalURL: "https://billing.stripe.com/p/session/1"},
		reconciler: &fakeReconciler{},
		events:     &memEvents{seen: map[string]bool{}},
	}

	deps := Deps{
		Catalog:    catalog,
		Gate:       entitlement.NewGate(env.usage, entitlement.NewSubscriptions(env.profiles, nil), false),
		Text:       env.text,
		Profiles:   env.profiles,
		Moderation: env.moderation,
		Speech:     env.speech,
		Archive:    env.archive,
		Voiceovers: env.voiceovers,
		Billing:    env.billing,
		Reconciler: env.reconciler,
		Events:     env.events,
		Seed:       func() int64 { return 42 },
	}
	for _, fn := range mutate {
		fn(&deps)
	}

	env.api = New(deps)
	env.mux = testMux(env.api)
	return env
}

// testMux mirrors the production route table.
func testMux(api *API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LoadIdentity(auth.NewVerifier(testSecret)))

	r.Get("/api/tools", api.ListTools)
	r.Post("/api/tools/{tool}", api.RunTool)
	r.Post("/api/voiceover", api.Voiceover)
	r.Get("/api/usage", api.Usage)
	r.Post("/api/post/starter", api.PostStarter)
	r.Post("/api/webhooks/stripe", api.StripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAccount)
		r.Get("/api/me", api.Me)
		r.Get("/api/voiceovers", api.ListVoiceovers)
		r.Post("/api/billing/checkout", api.Checkout)
		r.Post("/api/billing/portal", api.Portal)
	})
	return r
}

// call describes one request.
type call struct {
	method  string
	path    string
	body    string
	token   string
	cookies []*http.Cookie
	header  map[string]string
}

func (env *testEnv) do(c call) *httptest.ResponseRecorder {
	var req *http.Request
	if c.body != "" {
		req = httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(c.method, c.path, nil)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	env.mux.ServeHTTP(rr, req)
	return rr
}

// account mints a token for a fresh account.
func account(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	tok, err := auth.Mint(testSecret, id, "creator@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return id, tok
}

// decode unmarshals a JSON response body.
func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

// usageCookie finds the counter cookie for tool in the response.
func usageCookie(rr *httptest.ResponseRecorder, tool string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == entitlement.CookieName(tool) {
			return c
		}
	}
	return nil
}

var errUpstream = errors.New("upstream returned 500")
