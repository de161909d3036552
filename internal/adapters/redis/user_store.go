// Package redis provides Redis-based adapters for findash.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/findash/findash/internal/errors"
	"github.com/findash/findash/internal/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces findash keys.
const DefaultPrefix = "findash:"

var _ ports.UserStore = (*UserStore)(nil)

// UserStore keeps the single named user record under one Redis key with no TTL.
// The record lives until logout or a failed session check removes it.
type UserStore struct {
	client redis.UniversalClient
	key    string
}

// NewUserStore creates a store for the record called name, keyed as prefix+name.
// An empty prefix uses DefaultPrefix.
func NewUserStore(client redis.UniversalClient, prefix, name string) (*UserStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("record name cannot be empty")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &UserStore{client: client, key: prefix + name}, nil
}

// Key returns the Redis key holding the record.
func (s *UserStore) Key() string { return s.key }

func (s *UserStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("user record not found")
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *UserStore) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
