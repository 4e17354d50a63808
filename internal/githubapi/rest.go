package githubapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
)

const defaultAPIBaseURL = "https://api.github.com/"

// ClientConfig configures a per-user go-github REST client.
type ClientConfig struct {
	APIBaseURL    string
	Timeout       time.Duration
	Retry         RetryConfig
	Backoff       BackoffPolicy
	BaseTransport http.RoundTripper
}

// NewUserClient creates a go-github client authenticated with a user access
// token, layered over the retrying transport. An empty APIBaseURL targets
// api.github.com.
func NewUserClient(token string, cfg ClientConfig) (*github.Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("access token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{
		Transport: NewTransport(cfg.BaseTransport, cfg.Retry, cfg.Backoff),
		Timeout:   timeout,
	}

	client := github.NewClient(httpClient).WithAuthToken(token)
	baseURL, err := parseAPIBaseURL(cfg.APIBaseURL)
	if err != nil {
		return nil, err
	}
	client.BaseURL = baseURL
	return client, nil
}

func parseAPIBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultAPIBaseURL
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse github api base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse github api base url: missing scheme or host")
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	return parsed, nil
}
