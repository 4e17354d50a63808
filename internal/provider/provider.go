// Package provider implements the code-for-token and token-for-profile
// exchanges against external identity providers. Clients are stateless and
// parameterized by provider configuration; every HTTP call carries a bounded
// timeout and non-2xx responses are translated to typed failures.
package provider

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/model"
)

const defaultRequestTimeout = 10 * time.Second

// Profile is the verified identity returned by a successful exchange.
type Profile struct {
	Provider    model.Provider
	SubjectID   string
	Email       string
	Username    string
	AccessToken string
}

// Client is one external identity provider.
type Client interface {
	Name() model.Provider
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// exchangeCode trades an authorization code for a provider token using the
// given oauth2 config, with the timeout-bounded HTTP client injected so the
// library's internal calls honor it.
func exchangeCode(ctx context.Context, cfg *oauth2.Config, httpClient *http.Client, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindCodeExchangeFailed, "authorization code exchange failed", err)
	}
	if token.AccessToken == "" {
		return nil, apperror.New(apperror.KindCodeExchangeFailed, "provider returned an empty access token")
	}
	return token, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	return &http.Client{Timeout: timeout}
}
