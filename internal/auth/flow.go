package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/model"
	"github.com/mojomaniac/skillswap/internal/provider"
)

// ProfileResolver maps a verified provider profile to a local identity.
type ProfileResolver interface {
	Resolve(ctx context.Context, profile *provider.Profile) (*model.User, error)
}

// FlowMetrics records callback outcomes.
type FlowMetrics interface {
	AuthSucceeded(providerName string)
	AuthFailed(providerName string, kind string)
}

type nopFlowMetrics struct{}

func (nopFlowMetrics) AuthSucceeded(string) {}
func (nopFlowMetrics) AuthFailed(string, string) {}

// FlowResult is the successful outcome of one callback: a session token and
// the resolved identity's public view.
type FlowResult struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// Coordinator orchestrates one OAuth callback: replay admission, code
// exchange, identity resolution, and session issuance. The replay marker is
// released on every exit path.
type Coordinator struct {
	guard     *ReplayGuard
	providers map[model.Provider]provider.Client
	resolver  ProfileResolver
	issuer    *TokenIssuer
	logger    *zap.Logger
	metrics   FlowMetrics
}

// NewCoordinator creates a flow coordinator.
func NewCoordinator(
	guard *ReplayGuard,
	providers map[model.Provider]provider.Client,
	resolver ProfileResolver,
	issuer *TokenIssuer,
	logger *zap.Logger,
	metrics FlowMetrics,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopFlowMetrics{}
	}
	return &Coordinator{
		guard:     guard,
		providers: providers,
		resolver:  resolver,
		issuer:    issuer,
		logger:    logger,
		metrics:   metrics,
	}
}

// AuthURL builds the provider authorization URL for the given state.
func (c *Coordinator) AuthURL(providerName model.Provider, state string) (string, error) {
	client, ok := c.providers[providerName]
	if !ok {
		return "", apperror.Newf(apperror.KindValidation, "unknown provider %q", providerName)
	}
	return client.AuthCodeURL(state), nil
}

// Callback redeems an authorization code and returns a session token with
// the resolved identity. A code already being redeemed is rejected without
// touching the provider; the client must retry with a fresh code since the
// original is provider-side single-use.
func (c *Coordinator) Callback(ctx context.Context, providerName model.Provider, code string) (result *FlowResult, err error) {
	defer func() {
		if err != nil {
			c.metrics.AuthFailed(string(providerName), string(apperror.KindOf(err)))
		}
	}()

	if code == "" {
		return nil, apperror.New(apperror.KindValidation, "no code provided")
	}
	client, ok := c.providers[providerName]
	if !ok {
		return nil, apperror.Newf(apperror.KindValidation, "unknown provider %q", providerName)
	}

	if !c.guard.Begin(code) {
		c.logger.Warn("duplicate in-flight authorization code rejected",
			zap.String("provider", string(providerName)),
		)
		return nil, apperror.New(apperror.KindReplayRejected, "authorization code already being processed")
	}
	defer c.guard.End(code)

	profile, err := client.Exchange(ctx, code)
	if err != nil {
		c.logger.Warn("code redemption failed",
			zap.String("provider", string(providerName)),
			zap.String("kind", string(apperror.KindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	user, err := c.resolver.Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}

	token, err := c.issuer.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	c.metrics.AuthSucceeded(string(providerName))
	c.logger.Info("session issued",
		zap.String("provider", string(providerName)),
		zap.String("user_id", user.ID),
	)
	return &FlowResult{Token: token, User: user.PublicView()}, nil
}
