// Package activity fetches a user's GitHub commit history over a rolling
// window and turns it into the contribution calendar served by the API.
package activity

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mojomaniac/skillswap/internal/apperror"
)

// Failure records one repository whose history could not be read. The rest
// of the fetch still counts.
type Failure struct {
	Repo   string `json:"repo"`
	Reason string `json:"reason"`
}

// FetchResult is the raw outcome of one windowed fetch.
type FetchResult struct {
	CommitTimes []time.Time
	Failures    []Failure
	From        time.Time
	To          time.Time
}

// Options bound the fetch window and its request behavior.
type Options struct {
	WindowDays       int
	PageSize         int
	RepoConcurrency  int
	RequestsPerSec   float64
	RateLimitBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.WindowDays <= 0 {
		o.WindowDays = 365
	}
	if o.PageSize <= 0 {
		o.PageSize = 100
	}
	if o.RepoConcurrency <= 0 {
		o.RepoConcurrency = 4
	}
	if o.RateLimitBackoff <= 0 {
		o.RateLimitBackoff = 2 * time.Second
	}
	return o
}

// Fetcher walks a user's non-fork repositories and collects commit times
// they authored inside the window. Repositories are fetched concurrently;
// a rejected token or a persistent rate limit aborts the whole fetch, any
// other per-repository failure is recorded and skipped.
type Fetcher struct {
	newClient ClientFactory
	opts      Options
	limiter   *rate.Limiter
	logger    *zap.Logger

	// Now and Sleep are injected for testability.
	Now   func() time.Time
	Sleep func(duration time.Duration)
}

// NewFetcher creates a fetcher with defaulted options.
func NewFetcher(factory ClientFactory, opts Options, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	return &Fetcher{
		newClient: factory,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		Now:       time.Now,
		Sleep:     time.Sleep,
	}
}

// FetchWindow collects commit times authored by login across their own
// non-fork repositories within the configured window ending now.
func (f *Fetcher) FetchWindow(ctx context.Context, login, token string) (*FetchResult, error) {
	api, err := f.newClient(token)
	if err != nil {
		return nil, err
	}

	to := f.Now().UTC()
	from := startOfDay(to.AddDate(0, 0, -(f.opts.WindowDays - 1)))
	result := &FetchResult{From: from, To: to}

	repos, err := f.listSourceRepos(ctx, api)
	if err != nil {
		return nil, err
	}
	if len(repos) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		fatal error
	)
	abort := func(err error) {
		mu.Lock()
		if fatal == nil {
			fatal = err
			cancel()
		}
		mu.Unlock()
	}

	jobs := make(chan Repo)
	var wg sync.WaitGroup
	for i := 0; i < f.opts.RepoConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for repo := range jobs {
				times, err := f.repoCommitTimes(ctx, api, login, repo, from, to)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					kind := apperror.KindOf(err)
					if kind == apperror.KindCredentialExpired || kind == apperror.KindRateLimited {
						abort(err)
						return
					}
					f.logger.Warn("repository history skipped",
						zap.String("repo", repo.Owner+"/"+repo.Name),
						zap.String("kind", string(kind)),
						zap.Error(err),
					)
					mu.Lock()
					result.Failures = append(result.Failures, Failure{
						Repo:   repo.Owner + "/" + repo.Name,
						Reason: apperror.MessageOf(err),
					})
					mu.Unlock()
					continue
				}
				mu.Lock()
				result.CommitTimes = append(result.CommitTimes, times...)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, repo := range repos {
		select {
		case jobs <- repo:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// listSourceRepos pages the authenticated user's repositories, skipping
// forks. A rejected token here aborts immediately.
func (f *Fetcher) listSourceRepos(ctx context.Context, api API) ([]Repo, error) {
	var repos []Repo
	page := 1
	for page > 0 {
		var (
			batch []Repo
			next  int
		)
		err := f.callWithRetry(ctx, func() error {
			var callErr error
			batch, next, callErr = api.ListOwnRepos(ctx, page, f.opts.PageSize)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		for _, repo := range batch {
			if repo.Fork {
				continue
			}
			repos = append(repos, repo)
		}
		page = next
	}
	return repos, nil
}

func (f *Fetcher) repoCommitTimes(ctx context.Context, api API, login string, repo Repo, from, to time.Time) ([]time.Time, error) {
	var times []time.Time
	page := 1
	for page > 0 {
		var (
			batch []time.Time
			next  int
		)
		err := f.callWithRetry(ctx, func() error {
			var callErr error
			batch, next, callErr = api.ListCommitTimes(ctx, repo.Owner, repo.Name, login, from, to, page, f.opts.PageSize)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		times = append(times, batch...)
		page = next
	}
	return times, nil
}

// callWithRetry paces the call through the limiter and, on a rate-limited
// outcome, backs off once before a single retry. A second rate-limited
// outcome surfaces to the caller.
func (f *Fetcher) callWithRetry(ctx context.Context, call func() error) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	err := call()
	if !apperror.IsKind(err, apperror.KindRateLimited) {
		return err
	}

	f.logger.Warn("github rate limited, backing off before retry",
		zap.Duration("backoff", f.opts.RateLimitBackoff),
	)
	f.Sleep(f.opts.RateLimitBackoff)
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	return call()
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
