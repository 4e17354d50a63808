package activity

import (
	"context"

	"go.uber.org/zap"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/store"
)

// FetchMetrics records windowed fetch outcomes.
type FetchMetrics interface {
	FetchSucceeded(repoFailures int)
	FetchFailed(kind string)
}

type nopFetchMetrics struct{}

func (nopFetchMetrics) FetchSucceeded(int) {}
func (nopFetchMetrics) FetchFailed(string) {}

// Service resolves a stored identity's GitHub credential and produces their
// contribution calendar.
type Service struct {
	store   store.Store
	fetcher *Fetcher
	logger  *zap.Logger
	metrics FetchMetrics
}

// NewService creates an activity service.
func NewService(st store.Store, fetcher *Fetcher, logger *zap.Logger, metrics FetchMetrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopFetchMetrics{}
	}
	return &Service{store: st, fetcher: fetcher, logger: logger, metrics: metrics}
}

// UserReport builds the contribution calendar for one stored identity.
// Identities without a linked GitHub credential cannot have one.
func (s *Service) UserReport(ctx context.Context, userID string) (*Report, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	login, token, ok := user.GitHubLogin()
	if !ok {
		return nil, apperror.New(apperror.KindValidation, "no linked github account")
	}

	result, err := s.fetcher.FetchWindow(ctx, login, token)
	if err != nil {
		s.metrics.FetchFailed(string(apperror.KindOf(err)))
		s.logger.Warn("activity fetch failed",
			zap.String("user_id", userID),
			zap.String("kind", string(apperror.KindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.FetchSucceeded(len(result.Failures))

	report := BuildReport(Aggregate(result.CommitTimes), result.To, s.fetcher.opts.WindowDays)
	report.Failures = result.Failures
	return report, nil
}
