package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mojomaniac/skillswap/internal/activity"
	"github.com/mojomaniac/skillswap/internal/auth"
	"github.com/mojomaniac/skillswap/internal/identity"
	"github.com/mojomaniac/skillswap/internal/model"
	"github.com/mojomaniac/skillswap/internal/provider"
	"github.com/mojomaniac/skillswap/internal/store"
)

type stubProvider struct {
	mu        sync.Mutex
	exchanges int
	delay     time.Duration
	profile   provider.Profile
}

func (p *stubProvider) Name() model.Provider { return p.profile.Provider }

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://provider.example.com/authorize?state=" + state
}

func (p *stubProvider) Exchange(ctx context.Context, code string) (*provider.Profile, error) {
	p.mu.Lock()
	p.exchanges++
	p.mu.Unlock()
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	profile := p.profile
	return &profile, nil
}

type testEnv struct {
	router   http.Handler
	store    *store.MemoryStore
	issuer   *auth.TokenIssuer
	provider *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemoryStore()
	issuer, err := auth.NewTokenIssuer("test-secret-0123456789abcdef", 24*time.Hour, "skillswap")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	prov := &stubProvider{
		profile: provider.Profile{
			Provider:    model.ProviderGitHub,
			SubjectID:   "42",
			Email:       "octo@example.com",
			Username:    "octo",
			AccessToken: "gho_stub",
		},
	}
	coordinator := auth.NewCoordinator(
		auth.NewReplayGuard(),
		map[model.Provider]provider.Client{model.ProviderGitHub: prov},
		identity.NewResolver(st, zap.NewNop()),
		issuer,
		nil,
		nil,
	)
	local := auth.NewLocalService(st, issuer, nil)

	api := &fakeActivityAPI{}
	factory := func(string) (activity.API, error) { return api, nil }
	fetcher := activity.NewFetcher(factory, activity.Options{WindowDays: 30}, nil)
	activitySvc := activity.NewService(st, fetcher, nil, nil)

	handlers := NewHandlers(coordinator, local, activitySvc, st, nil)
	router := NewRouter(RouterConfig{
		Handlers:    handlers,
		Verifier:    issuer,
		FrontendURL: "http://localhost:5173",
	})
	return &testEnv{router: router, store: st, issuer: issuer, provider: prov}
}

type fakeActivityAPI struct{}

func (fakeActivityAPI) ListOwnRepos(context.Context, int, int) ([]activity.Repo, int, error) {
	return nil, 0, nil
}

func (fakeActivityAPI) ListCommitTimes(context.Context, string, string, string, time.Time, time.Time, int, int) ([]time.Time, int, error) {
	return nil, 0, nil
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func registerUser(t *testing.T, env *testEnv, username, email string) (token, userID string) {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username,
		"email":    email,
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[auth.FlowResult](t, rec)
	return result.Token, result.User.ID
}

func TestAuthURLEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/github", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[map[string]string](t, rec)
	if body["authUrl"] == "" {
		t.Fatal("no authUrl in response")
	}

	rec = env.do(t, http.MethodGet, "/api/auth/gitlab", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown provider status = %d, want 400", rec.Code)
	}
}

func TestFrontendOriginCORS(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected Access-Control-Allow-Origin %q for foreign origin", got)
	}
}

func TestCallbackEndpointIssuesUsableSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/github/callback", "", map[string]string{"code": "code-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[auth.FlowResult](t, rec)
	if result.Token == "" || result.User.Email != "octo@example.com" {
		t.Fatalf("unexpected result: %+v", result)
	}

	me := env.do(t, http.MethodGet, "/api/users/me", result.Token, nil)
	if me.Code != http.StatusOK {
		t.Fatalf("me status = %d: %s", me.Code, me.Body.String())
	}
	view := decodeBody[model.PublicUser](t, me)
	if view.ID != result.User.ID {
		t.Fatalf("me resolved %q, want %q", view.ID, result.User.ID)
	}
}

func TestCallbackEndpointRejectsConcurrentDuplicate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.provider.delay = 50 * time.Millisecond

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := env.do(t, http.MethodPost, "/api/auth/github/callback", "", map[string]string{"code": "dup"})
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusBadRequest:
			rejected++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Fatalf("ok = %d, rejected = %d; want 1 and 1", ok, rejected)
	}
}

func TestCallbackEndpointValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/github/callback", "", map[string]string{"code": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty code status = %d, want 400", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["error"] == "" {
		t.Fatal("no error message in response")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, path := range []string{"/api/users/me", "/api/users/me/activity", "/api/chat"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", path, rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/users/me", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", rec.Code)
	}
}

func TestUpdateUserSelfOnly(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tokenA, idA := registerUser(t, env, "alice", "alice@example.com")
	_, idB := registerUser(t, env, "bob", "bob@example.com")

	rec := env.do(t, http.MethodPut, "/api/users/"+idB, tokenA, map[string]any{"username": "mallory"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-user update status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/users/"+idA, tokenA, map[string]any{
		"username":       "alice2",
		"skills_offered": []string{"go", "sql"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("self update status = %d: %s", rec.Code, rec.Body.String())
	}
	view := decodeBody[model.PublicUser](t, rec)
	if view.Username != "alice2" || len(view.SkillsOffered) != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestKarmaAndLeaderboard(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tokenA, idA := registerUser(t, env, "alice", "alice@example.com")
	tokenB, idB := registerUser(t, env, "bob", "bob@example.com")

	if rec := env.do(t, http.MethodPut, "/api/users/"+idA+"/karma", tokenA, map[string]int{"points": 5}); rec.Code != http.StatusBadRequest {
		t.Fatalf("self karma status = %d, want 400", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/users/"+idB+"/karma", tokenA, map[string]int{"points": 5}); rec.Code != http.StatusOK {
		t.Fatalf("award status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPut, "/api/users/"+idA+"/karma", tokenB, map[string]int{"points": 2}); rec.Code != http.StatusOK {
		t.Fatalf("award status = %d: %s", rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/leaderboard?limit=1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard status = %d: %s", rec.Code, rec.Body.String())
	}
	top := decodeBody[[]model.PublicUser](t, rec)
	if len(top) != 1 || top[0].ID != idB {
		t.Fatalf("leaderboard top = %+v, want bob first", top)
	}
}

func TestSkillsAndChat(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token, userID := registerUser(t, env, "alice", "alice@example.com")

	rec := env.do(t, http.MethodPost, "/api/skills", token, map[string]string{
		"name":     "Go",
		"category": "programming",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create skill status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/skills", "", nil)
	skills := decodeBody[[]model.Skill](t, rec)
	if len(skills) != 1 || skills[0].Name != "Go" {
		t.Fatalf("skills = %+v", skills)
	}

	rec = env.do(t, http.MethodPost, "/api/chat", token, map[string]string{"message": "hello"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post message status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/chat", token, nil)
	messages := decodeBody[[]model.Message](t, rec)
	if len(messages) != 1 || messages[0].UserID != userID || messages[0].Body != "hello" {
		t.Fatalf("messages = %+v", messages)
	}
}

func TestActivityWithoutLinkedGitHub(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token, _ := registerUser(t, env, "alice", "alice@example.com")

	rec := env.do(t, http.MethodGet, "/api/users/me/activity", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestActivityReportShape(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/github/callback", "", map[string]string{"code": "code-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("callback status = %d: %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[auth.FlowResult](t, rec)

	rec = env.do(t, http.MethodGet, "/api/users/me/activity", result.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[activity.Report](t, rec)
	if report.TotalContributions != 0 {
		t.Fatalf("TotalContributions = %d, want 0", report.TotalContributions)
	}
	if len(report.ContributionsByWeek) != 5 {
		t.Fatalf("week rows = %d, want 5 for a 30-day window", len(report.ContributionsByWeek))
	}
}
