package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/model"
	"github.com/mojomaniac/skillswap/internal/provider"
)

type fakeProvider struct {
	mu        sync.Mutex
	exchanges int
	delay     time.Duration
	fail      error
	profile   provider.Profile
}

func (p *fakeProvider) Name() model.Provider { return model.ProviderGitHub }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://example.com/auth?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*provider.Profile, error) {
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
	if p.fail != nil {
		return nil, p.fail
	}
	profile := p.profile
	return &profile, nil
}

type fakeResolver struct {
	user model.User
	fail error
}

func (r *fakeResolver) Resolve(_ context.Context, _ *provider.Profile) (*model.User, error) {
	if r.fail != nil {
		return nil, r.fail
	}
	user := r.user
	return &user, nil
}

func newTestCoordinator(t *testing.T, prov *fakeProvider, resolver *fakeResolver) (*Coordinator, *ReplayGuard) {
	t.Helper()
	guard := NewReplayGuard()
	issuer := newTestIssuer(t)
	coordinator := NewCoordinator(
		guard,
		map[model.Provider]provider.Client{model.ProviderGitHub: prov},
		resolver,
		issuer,
		nil,
		nil,
	)
	return coordinator, guard
}

func defaultFakes() (*fakeProvider, *fakeResolver) {
	prov := &fakeProvider{
		profile: provider.Profile{
			Provider:  model.ProviderGitHub,
			SubjectID: "42",
			Email:     "octo@example.com",
			Username:  "octo",
		},
	}
	resolver := &fakeResolver{
		user: model.User{
			ID:       "user-1",
			Provider: model.ProviderGitHub,
			Email:    "octo@example.com",
			Username: "octo",
			GitHub:   &model.GitHubCredential{SubjectID: "42", Username: "octo", AccessToken: "gho_x"},
		},
	}
	return prov, resolver
}

func TestCallbackIssuesSession(t *testing.T) {
	t.Parallel()
	prov, resolver := defaultFakes()
	coordinator, guard := newTestCoordinator(t, prov, resolver)

	result, err := coordinator.Callback(context.Background(), model.ProviderGitHub, "code-1")
	if err != nil {
		t.Fatalf("Callback: %v", err)
	}
	if result.Token == "" {
		t.Fatal("no session token returned")
	}
	if result.User.ID != "user-1" {
		t.Fatalf("User.ID = %q", result.User.ID)
	}
	if guard.InFlight("code-1") {
		t.Fatal("replay marker not released after success")
	}
}

func TestCallbackConcurrentSameCode(t *testing.T) {
	t.Parallel()
	prov, resolver := defaultFakes()
	prov.delay = 50 * time.Millisecond
	coordinator, guard := newTestCoordinator(t, prov, resolver)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coordinator.Callback(context.Background(), model.ProviderGitHub, "code-dup")
		}(i)
	}
	wg.Wait()

	var successes, replays int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case apperror.IsKind(err, apperror.KindReplayRejected):
			replays++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || replays != 1 {
		t.Fatalf("successes = %d, replays = %d; want 1 and 1", successes, replays)
	}
	if guard.InFlight("code-dup") {
		t.Fatal("guard not empty after both attempts completed")
	}

	// A later sequential attempt is admitted again; single-use enforcement
	// belongs to the provider, not the guard.
	if _, err := coordinator.Callback(context.Background(), model.ProviderGitHub, "code-dup"); err != nil {
		t.Fatalf("sequential reuse rejected locally: %v", err)
	}
	if prov.exchanges != 2 {
		t.Fatalf("provider exchanges = %d, want 2", prov.exchanges)
	}
}

func TestCallbackReleasesGuardOnProviderFailure(t *testing.T) {
	t.Parallel()
	prov, resolver := defaultFakes()
	prov.fail = apperror.New(apperror.KindCodeExchangeFailed, "code already consumed upstream")
	coordinator, guard := newTestCoordinator(t, prov, resolver)

	_, err := coordinator.Callback(context.Background(), model.ProviderGitHub, "code-1")
	if !apperror.IsKind(err, apperror.KindCodeExchangeFailed) {
		t.Fatalf("error = %v, want code_exchange_failed", err)
	}
	if guard.InFlight("code-1") {
		t.Fatal("replay marker leaked after provider failure")
	}
}

func TestCallbackReleasesGuardOnResolverFailure(t *testing.T) {
	t.Parallel()
	prov, resolver := defaultFakes()
	resolver.fail = apperror.New(apperror.KindInternal, "store down")
	coordinator, guard := newTestCoordinator(t, prov, resolver)

	if _, err := coordinator.Callback(context.Background(), model.ProviderGitHub, "code-1"); err == nil {
		t.Fatal("Callback succeeded despite resolver failure")
	}
	if guard.InFlight("code-1") {
		t.Fatal("replay marker leaked after resolver failure")
	}
}

func TestCallbackValidation(t *testing.T) {
	t.Parallel()
	prov, resolver := defaultFakes()
	coordinator, _ := newTestCoordinator(t, prov, resolver)

	if _, err := coordinator.Callback(context.Background(), model.ProviderGitHub, ""); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("empty code error = %v, want validation", err)
	}
	if _, err := coordinator.Callback(context.Background(), model.ProviderGoogle, "code-1"); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("unknown provider error = %v, want validation", err)
	}
}
