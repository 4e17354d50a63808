// Package identity resolves verified provider profiles to local identities.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/model"
	"github.com/mojomaniac/skillswap/internal/provider"
	"github.com/mojomaniac/skillswap/internal/store"
)

// Resolver finds or creates the identity for a verified provider profile.
// Email is the cross-provider merge key: a user who registered locally and
// later signs in via GitHub with the same email is linked, not duplicated.
type Resolver struct {
	store  store.Store
	logger *zap.Logger

	// Injected for testability.
	NewID func() string
	Now   func() time.Time
}

// NewResolver creates a resolver over the given store.
func NewResolver(st store.Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:  st,
		logger: logger,
		NewID:  uuid.NewString,
		Now:    time.Now,
	}
}

// Resolve returns the identity for profile, creating one when none exists.
// Repeated calls with the same profile are idempotent. When the email maps
// to an identity under a different primary provider, only the linking
// credential is updated; primary-provider fields and any local password
// hash are left untouched.
func (r *Resolver) Resolve(ctx context.Context, profile *provider.Profile) (*model.User, error) {
	existing, err := r.store.FindUserByEmail(ctx, profile.Email)
	if err == nil {
		return r.link(ctx, existing, profile)
	}
	if !apperror.IsKind(err, apperror.KindNotFound) {
		return nil, fmt.Errorf("lookup identity by email: %w", err)
	}

	created := r.newIdentity(profile)
	if err := r.store.InsertUser(ctx, created); err != nil {
		// A concurrent resolution for the same email may win the insert;
		// fall back to linking against the winner.
		if apperror.IsKind(err, apperror.KindConflict) {
			winner, findErr := r.store.FindUserByEmail(ctx, profile.Email)
			if findErr != nil {
				return nil, fmt.Errorf("reload identity after insert conflict: %w", findErr)
			}
			return r.link(ctx, winner, profile)
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	r.logger.Info("identity created",
		zap.String("user_id", created.ID),
		zap.String("provider", string(profile.Provider)),
	)
	return created, nil
}

func (r *Resolver) newIdentity(profile *provider.Profile) *model.User {
	user := &model.User{
		ID:        r.NewID(),
		Provider:  profile.Provider,
		Email:     profile.Email,
		Username:  profile.Username,
		CreatedAt: r.Now().UTC(),
	}
	applyCredential(user, profile)
	return user
}

func (r *Resolver) link(ctx context.Context, user *model.User, profile *provider.Profile) (*model.User, error) {
	if !applyCredential(user, profile) {
		return user, nil
	}
	if err := r.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("link provider credential: %w", err)
	}
	r.logger.Info("provider linked",
		zap.String("user_id", user.ID),
		zap.String("provider", string(profile.Provider)),
	)
	return user, nil
}

// applyCredential merges the profile's credential into user and reports
// whether anything changed. The switch is exhaustive over providers; local
// password credentials are never written here.
func applyCredential(user *model.User, profile *provider.Profile) bool {
	switch profile.Provider {
	case model.ProviderGoogle:
		next := &model.GoogleCredential{SubjectID: profile.SubjectID}
		if user.Google != nil && *user.Google == *next {
			return false
		}
		user.Google = next
		return true
	case model.ProviderGitHub:
		next := &model.GitHubCredential{
			SubjectID:   profile.SubjectID,
			Username:    profile.Username,
			AccessToken: profile.AccessToken,
		}
		if user.GitHub != nil && *user.GitHub == *next {
			return false
		}
		user.GitHub = next
		return true
	default:
		return false
	}
}
