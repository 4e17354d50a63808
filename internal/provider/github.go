package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/model"
)

const defaultGitHubAPIBaseURL = "https://api.github.com"

// GitHubConfig configures the GitHub OAuth client. The endpoint URLs are
// overridable for tests.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration

	AuthURL    string
	TokenURL   string
	APIBaseURL string
}

// GitHub performs the GitHub authorization-code flow. The returned profile
// keeps the access token so activity fetches can later act as the user.
type GitHub struct {
	oauth      *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// NewGitHub creates a GitHub provider client.
func NewGitHub(cfg GitHubConfig) *GitHub {
	endpoint := githuboauth.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	apiBaseURL := strings.TrimSuffix(cfg.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultGitHubAPIBaseURL
	}
	return &GitHub{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email", "repo"},
			Endpoint:     endpoint,
		},
		apiBaseURL: apiBaseURL,
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// Name reports the provider identifier.
func (g *GitHub) Name() model.Provider { return model.ProviderGitHub }

// AuthCodeURL builds the URL the user is sent to for authorization.
func (g *GitHub) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type githubEmail struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

// Exchange trades the authorization code for a verified GitHub profile.
// Email resolution: the primary entry of /user/emails, else the first listed
// entry, else the profile payload's email, else NoEmailAvailable.
func (g *GitHub) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := exchangeCode(ctx, g.oauth, g.httpClient, code)
	if err != nil {
		return nil, err
	}

	var user githubUser
	if err := g.getJSON(ctx, token.AccessToken, "/user", &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, apperror.New(apperror.KindProfileFetchFailed, "github returned an invalid user")
	}

	email, err := g.resolveEmail(ctx, token.AccessToken, user.Email)
	if err != nil {
		return nil, err
	}

	return &Profile{
		Provider:    model.ProviderGitHub,
		SubjectID:   strconv.FormatInt(user.ID, 10),
		Email:       email,
		Username:    user.Login,
		AccessToken: token.AccessToken,
	}, nil
}

func (g *GitHub) resolveEmail(ctx context.Context, accessToken, profileEmail string) (string, error) {
	var emails []githubEmail
	// Listing can fail when the token lacks the email scope; the profile
	// payload email still serves as the last fallback.
	listErr := g.getJSON(ctx, accessToken, "/user/emails", &emails)
	if listErr == nil {
		for _, entry := range emails {
			if entry.Primary {
				return entry.Email, nil
			}
		}
		if len(emails) > 0 {
			return emails[0].Email, nil
		}
	}
	if profileEmail != "" {
		return profileEmail, nil
	}
	return "", apperror.New(apperror.KindNoEmailAvailable, "no email available for github identity")
}

func (g *GitHub) getJSON(ctx context.Context, accessToken, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBaseURL+path, nil)
	if err != nil {
		return apperror.Wrap(apperror.KindProfileFetchFailed, "build github request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return apperror.Wrap(apperror.KindUpstreamUnavailable, "github api unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperror.New(apperror.KindProfileFetchFailed,
			fmt.Sprintf("github %s returned status %d", path, resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Wrap(apperror.KindProfileFetchFailed, "decode github response", err)
	}
	return nil
}
