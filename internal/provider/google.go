package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/model"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig configures the Google OAuth client. The endpoint URLs are
// overridable for tests.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// Google performs the Google authorization-code flow.
type Google struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogle creates a Google provider client.
func NewGoogle(cfg GoogleConfig) *Google {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		httpClient:  newHTTPClient(cfg.Timeout),
	}
}

// Name reports the provider identifier.
func (g *Google) Name() model.Provider { return model.ProviderGoogle }

// AuthCodeURL builds the URL the user is sent to for authorization.
func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

type googleUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange trades the authorization code for a verified Google profile.
func (g *Google) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := exchangeCode(ctx, g.oauth, g.httpClient, code)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindProfileFetchFailed, "build userinfo request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUpstreamUnavailable, "google userinfo unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.New(apperror.KindProfileFetchFailed,
			fmt.Sprintf("google userinfo returned status %d", resp.StatusCode))
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperror.Wrap(apperror.KindProfileFetchFailed, "decode google userinfo", err)
	}
	if info.Email == "" {
		return nil, apperror.New(apperror.KindNoEmailAvailable, "google profile carries no email")
	}

	return &Profile{
		Provider:    model.ProviderGoogle,
		SubjectID:   info.ID,
		Email:       info.Email,
		Username:    info.Name,
		AccessToken: token.AccessToken,
	}, nil
}
