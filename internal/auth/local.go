package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/model"
	"github.com/mojomaniac/skillswap/internal/store"
)

// LocalService handles password registration and login for identities whose
// primary provider is local.
type LocalService struct {
	store  store.Store
	issuer *TokenIssuer
	logger *zap.Logger

	NewID func() string
	Now   func() time.Time
}

// NewLocalService creates a local registration/login service.
func NewLocalService(st store.Store, issuer *TokenIssuer, logger *zap.Logger) *LocalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalService{
		store:  st,
		issuer: issuer,
		logger: logger,
		NewID:  uuid.NewString,
		Now:    time.Now,
	}
}

// RegisterInput is the payload for local registration.
type RegisterInput struct {
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	Password      string   `json:"password"`
	SkillsOffered []string `json:"skills_offered"`
	SkillsNeeded  []string `json:"skills_needed"`
}

// Register creates a local identity and issues a session token.
func (s *LocalService) Register(ctx context.Context, input RegisterInput) (*FlowResult, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, apperror.New(apperror.KindValidation, "username, email, and password are required")
	}
	if _, err := s.store.FindUserByEmail(ctx, input.Email); err == nil {
		return nil, apperror.New(apperror.KindConflict, "user already exists")
	} else if !apperror.IsKind(err, apperror.KindNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "hash password", err)
	}

	user := &model.User{
		ID:            s.NewID(),
		Provider:      model.ProviderLocal,
		Email:         input.Email,
		Username:      input.Username,
		SkillsOffered: input.SkillsOffered,
		SkillsNeeded:  input.SkillsNeeded,
		CreatedAt:     s.Now().UTC(),
		Local:         &model.LocalCredential{PasswordHash: string(hash)},
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("local identity registered", zap.String("user_id", user.ID))
	return &FlowResult{Token: token, User: user.PublicView()}, nil
}

// Login verifies a password against the stored local credential and issues a
// session token. Identities without a local credential cannot log in with a
// password even when the email matches.
func (s *LocalService) Login(ctx context.Context, email, password string) (*FlowResult, error) {
	if email == "" || password == "" {
		return nil, apperror.New(apperror.KindValidation, "email and password are required")
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.New(apperror.KindUnauthorized, "invalid credentials")
		}
		return nil, err
	}
	if user.Local == nil {
		return nil, apperror.New(apperror.KindUnauthorized, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Local.PasswordHash), []byte(password)) != nil {
		return nil, apperror.New(apperror.KindUnauthorized, "invalid credentials")
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &FlowResult{Token: token, User: user.PublicView()}, nil
}
