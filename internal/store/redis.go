package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/model"
)

// redisCommander is the subset of go-redis commands the store depends on.
// Narrowing the dependency keeps the store testable without a live server.
type redisCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore is a Redis-backed document store. Documents are stored as JSON
// under namespaced keys with secondary indexes for email and karma ranking.
type RedisStore struct {
	client    redisCommander
	closeFn   func() error
	namespace string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	closeFn := func() error { return nil }
	if client != nil {
		closeFn = client.Close
	}
	return newRedisStoreFromCommander(client, closeFn, namespace)
}

func newRedisStoreFromCommander(client redisCommander, closeFn func() error, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "skillswap"
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &RedisStore{
		client:    client,
		closeFn:   closeFn,
		namespace: namespace,
	}
}

func (s *RedisStore) userKey(id string) string {
	return fmt.Sprintf("%s:user:%s", s.namespace, id)
}

func (s *RedisStore) emailKey(email string) string {
	return fmt.Sprintf("%s:user_email:%s", s.namespace, normalizeEmail(email))
}

func (s *RedisStore) key(suffix string) string {
	return s.namespace + ":" + suffix
}

// FindUserByID returns the user with the given id.
func (s *RedisStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	raw, err := s.client.Get(ctx, s.userKey(id)).Result()
	if err == redis.Nil {
		return nil, apperror.Newf(apperror.KindNotFound, "user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get user: %w", err)
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode user document: %w", err)
	}
	return &user, nil
}

// FindUserByEmail resolves the email index and loads the user document.
func (s *RedisStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	id, err := s.client.Get(ctx, s.emailKey(email)).Result()
	if err == redis.Nil {
		return nil, apperror.Newf(apperror.KindNotFound, "no user with email %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get email index: %w", err)
	}
	return s.FindUserByID(ctx, id)
}

// InsertUser stores a new user document. The email index is claimed with
// SETNX so two concurrent inserts for one email cannot both succeed.
func (s *RedisStore) InsertUser(ctx context.Context, user *model.User) error {
	claimed, err := s.client.SetNX(ctx, s.emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("redis claim email index: %w", err)
	}
	if !claimed {
		return apperror.Newf(apperror.KindConflict, "email %s already registered", user.Email)
	}
	if err := s.writeUser(ctx, user); err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, s.key("users"), user.ID).Err(); err != nil {
		return fmt.Errorf("redis index user id: %w", err)
	}
	return nil
}

// UpdateUser replaces an existing user document.
func (s *RedisStore) UpdateUser(ctx context.Context, user *model.User) error {
	if _, err := s.FindUserByID(ctx, user.ID); err != nil {
		return err
	}
	return s.writeUser(ctx, user)
}

func (s *RedisStore) writeUser(ctx context.Context, user *model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user document: %w", err)
	}
	if err := s.client.Set(ctx, s.userKey(user.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set user: %w", err)
	}
	member := redis.Z{Score: float64(user.KarmaPoints), Member: user.ID}
	if err := s.client.ZAdd(ctx, s.key("karma"), member).Err(); err != nil {
		return fmt.Errorf("redis update karma rank: %w", err)
	}
	return nil
}

// ListUsers loads every user document.
func (s *RedisStore) ListUsers(ctx context.Context) ([]model.User, error) {
	ids, err := s.client.SMembers(ctx, s.key("users")).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list user ids: %w", err)
	}
	return s.loadUsers(ctx, ids)
}

// TopUsersByKarma reads the karma ranking index in descending order.
func (s *RedisStore) TopUsersByKarma(ctx context.Context, limit int) ([]model.User, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.client.ZRevRange(ctx, s.key("karma"), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis karma range: %w", err)
	}
	return s.loadUsers(ctx, ids)
}

func (s *RedisStore) loadUsers(ctx context.Context, ids []string) ([]model.User, error) {
	users := make([]model.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.FindUserByID(ctx, id)
		if err != nil {
			// Index entries may briefly outlive their documents.
			if apperror.IsKind(err, apperror.KindNotFound) {
				continue
			}
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

// InsertSkill appends a skill record.
func (s *RedisStore) InsertSkill(ctx context.Context, skill *model.Skill) error {
	raw, err := json.Marshal(skill)
	if err != nil {
		return fmt.Errorf("encode skill document: %w", err)
	}
	if err := s.client.RPush(ctx, s.key("skills"), raw).Err(); err != nil {
		return fmt.Errorf("redis push skill: %w", err)
	}
	return nil
}

// ListSkills returns all skill records in insertion order.
func (s *RedisStore) ListSkills(ctx context.Context) ([]model.Skill, error) {
	rows, err := s.client.LRange(ctx, s.key("skills"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list skills: %w", err)
	}
	skills := make([]model.Skill, 0, len(rows))
	for _, raw := range rows {
		var skill model.Skill
		if err := json.Unmarshal([]byte(raw), &skill); err != nil {
			return nil, fmt.Errorf("decode skill document: %w", err)
		}
		skills = append(skills, skill)
	}
	return skills, nil
}

// InsertMessage appends a chat message.
func (s *RedisStore) InsertMessage(ctx context.Context, message *model.Message) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message document: %w", err)
	}
	if err := s.client.RPush(ctx, s.key("messages"), raw).Err(); err != nil {
		return fmt.Errorf("redis push message: %w", err)
	}
	return nil
}

// ListMessages returns all chat messages in insertion order.
func (s *RedisStore) ListMessages(ctx context.Context) ([]model.Message, error) {
	rows, err := s.client.LRange(ctx, s.key("messages"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list messages: %w", err)
	}
	messages := make([]model.Message, 0, len(rows))
	for _, raw := range rows {
		var message model.Message
		if err := json.Unmarshal([]byte(raw), &message); err != nil {
			return nil, fmt.Errorf("decode message document: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// Ping checks Redis reachability.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.closeFn()
}
