package activity

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/go-github/v75/github"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/githubapi"
)

// Repo is one candidate repository for commit history.
type Repo struct {
	Owner string
	Name  string
	Fork  bool
}

// API is the narrow GitHub surface the fetcher consumes. Page numbers are
// 1-based; a zero next page ends pagination.
type API interface {
	ListOwnRepos(ctx context.Context, page, perPage int) ([]Repo, int, error)
	ListCommitTimes(ctx context.Context, owner, repo, author string, since, until time.Time, page, perPage int) ([]time.Time, int, error)
}

// ClientFactory builds an API bound to one user's access token.
type ClientFactory func(token string) (API, error)

// NewGitHubClientFactory returns a factory producing go-github backed
// clients with the shared transport configuration.
func NewGitHubClientFactory(cfg githubapi.ClientConfig) ClientFactory {
	return func(token string) (API, error) {
		client, err := githubapi.NewUserClient(token, cfg)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindInternal, "build github client", err)
		}
		return &githubAPI{client: client}, nil
	}
}

type githubAPI struct {
	client *github.Client
}

func (g *githubAPI) ListOwnRepos(ctx context.Context, page, perPage int) ([]Repo, int, error) {
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	repos, resp, err := g.client.Repositories.ListByAuthenticatedUser(ctx, opts)
	if err != nil {
		return nil, 0, classifyGitHubError("list repositories", err)
	}

	out := make([]Repo, 0, len(repos))
	for _, repo := range repos {
		out = append(out, Repo{
			Owner: repo.GetOwner().GetLogin(),
			Name:  repo.GetName(),
			Fork:  repo.GetFork(),
		})
	}
	return out, resp.NextPage, nil
}

func (g *githubAPI) ListCommitTimes(ctx context.Context, owner, repo, author string, since, until time.Time, page, perPage int) ([]time.Time, int, error) {
	opts := &github.CommitsListOptions{
		Author:      author,
		Since:       since,
		Until:       until,
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	commits, resp, err := g.client.Repositories.ListCommits(ctx, owner, repo, opts)
	if err != nil {
		// Empty repositories answer 409; there is nothing to count.
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusConflict {
			return nil, 0, nil
		}
		return nil, 0, classifyGitHubError("list commits", err)
	}

	times := make([]time.Time, 0, len(commits))
	for _, commit := range commits {
		authored := commit.GetCommit().GetAuthor().GetDate().Time
		if authored.IsZero() {
			continue
		}
		times = append(times, authored)
	}
	return times, resp.NextPage, nil
}

// classifyGitHubError maps go-github failures to the error taxonomy: revoked
// or expired tokens, rate limiting, and everything else upstream.
func classifyGitHubError(operation string, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	var respErr *github.ErrorResponse

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return apperror.Wrap(apperror.KindRateLimited, operation+": github rate limit exceeded", err)
	case errors.As(err, &respErr) && respErr.Response != nil:
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return apperror.Wrap(apperror.KindCredentialExpired, operation+": github token rejected", err)
		case http.StatusForbidden, http.StatusTooManyRequests:
			return apperror.Wrap(apperror.KindRateLimited, operation+": github rate limit exceeded", err)
		default:
			return apperror.Wrap(apperror.KindUpstreamUnavailable, operation+": github request failed", err)
		}
	default:
		return apperror.Wrap(apperror.KindUpstreamUnavailable, operation+": github unreachable", err)
	}
}
