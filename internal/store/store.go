// Package store provides the keyed document store behind users, skills, and
// chat messages. It holds no business logic; callers own all semantics.
package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/model"
)

// Store is the document-store contract consumed by the rest of the service.
type Store interface {
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	InsertUser(ctx context.Context, user *model.User) error
	UpdateUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	TopUsersByKarma(ctx context.Context, limit int) ([]model.User, error)

	InsertSkill(ctx context.Context, skill *model.Skill) error
	ListSkills(ctx context.Context) ([]model.Skill, error)

	InsertMessage(ctx context.Context, message *model.Message) error
	ListMessages(ctx context.Context) ([]model.Message, error)

	Ping(ctx context.Context) error
	Close() error
}

// MemoryStore is an in-memory Store for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]model.User
	byEmail  map[string]string
	skills   []model.Skill
	messages []model.Message
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]model.User),
		byEmail: make(map[string]string),
	}
}

// FindUserByID returns the user with the given id.
func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperror.Newf(apperror.KindNotFound, "user %s not found", id)
	}
	cloned := cloneUser(user)
	return &cloned, nil
}

// FindUserByEmail returns the user with the given email. Email comparison is
// case-insensitive; email is unique across all identities.
func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, apperror.Newf(apperror.KindNotFound, "no user with email %s", email)
	}
	user := s.users[id]
	cloned := cloneUser(user)
	return &cloned, nil
}

// InsertUser stores a new user, rejecting duplicate ids and emails.
func (s *MemoryStore) InsertUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return apperror.Newf(apperror.KindConflict, "user %s already exists", user.ID)
	}
	email := normalizeEmail(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return apperror.Newf(apperror.KindConflict, "email %s already registered", user.Email)
	}
	s.users[user.ID] = cloneUser(*user)
	s.byEmail[email] = user.ID
	return nil
}

// UpdateUser replaces an existing user document.
func (s *MemoryStore) UpdateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return apperror.Newf(apperror.KindNotFound, "user %s not found", user.ID)
	}
	if normalizeEmail(existing.Email) != normalizeEmail(user.Email) {
		delete(s.byEmail, normalizeEmail(existing.Email))
		s.byEmail[normalizeEmail(user.Email)] = user.ID
	}
	s.users[user.ID] = cloneUser(*user)
	return nil
}

// ListUsers returns all users ordered by creation time.
func (s *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]model.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, cloneUser(user))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// TopUsersByKarma returns up to limit users ordered by karma descending.
func (s *MemoryStore) TopUsersByKarma(ctx context.Context, limit int) ([]model.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].KarmaPoints > users[j].KarmaPoints
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// InsertSkill appends a skill record.
func (s *MemoryStore) InsertSkill(_ context.Context, skill *model.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills = append(s.skills, *skill)
	return nil
}

// ListSkills returns all skill records in insertion order.
func (s *MemoryStore) ListSkills(_ context.Context) ([]model.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.skills), nil
}

// InsertMessage appends a chat message.
func (s *MemoryStore) InsertMessage(_ context.Context, message *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *message)
	return nil
}

// ListMessages returns all chat messages ordered by timestamp.
func (s *MemoryStore) ListMessages(_ context.Context) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := slices.Clone(s.messages)
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

// Ping reports the store as reachable.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// cloneUser copies a user so callers never share slices or maps with the
// stored document.
func cloneUser(user model.User) model.User {
	cloned := user
	cloned.SkillsOffered = slices.Clone(user.SkillsOffered)
	cloned.SkillsNeeded = slices.Clone(user.SkillsNeeded)
	if user.SkillProgress != nil {
		cloned.SkillProgress = maps.Clone(user.SkillProgress)
	}
	if user.Local != nil {
		local := *user.Local
		cloned.Local = &local
	}
	if user.Google != nil {
		google := *user.Google
		cloned.Google = &google
	}
	if user.GitHub != nil {
		gh := *user.GitHub
		cloned.GitHub = &gh
	}
	return cloned
}
