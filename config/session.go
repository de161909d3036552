package config

import (
	"fmt"
	"strings"
)

// SessionStoreKind selects where the signed-in user record is kept.
type SessionStoreKind string

const (
	SessionStoreFile  SessionStoreKind = "file"
	SessionStoreRedis SessionStoreKind = "redis"
)

// SessionConfig controls the persisted user record.
type SessionConfig struct {
	Store SessionStoreKind `env:"SESSION_STORE" envDefault:"file"`

	// Dir holds <RecordName>.json for the file store.
	Dir string `env:"SESSION_DIR" envDefault:".findash"`

	// RecordName names the single stored record.
	RecordName string `env:"SESSION_RECORD_NAME" envDefault:"user"`

	// RedisPrefix is prepended to RecordName to form the Redis key.
	RedisPrefix string `env:"SESSION_REDIS_PREFIX" envDefault:"findash:"`

	// EncryptionKey seals the record at rest when set. A 64-character hex value
	// is used as the AES-256 key directly; anything else is hashed into one.
	EncryptionKey string `env:"SESSION_ENCRYPTION_KEY"`
}

// Sanitize normalises the store kind and fills blank names with defaults.
func (s *SessionConfig) Sanitize() {
	s.Store = SessionStoreKind(strings.ToLower(strings.TrimSpace(string(s.Store))))
	if s.Store == "" {
		s.Store = SessionStoreFile
	}
	if s.Dir = strings.TrimSpace(s.Dir); s.Dir == "" {
		s.Dir = ".findash"
	}
	if s.RecordName = strings.TrimSpace(s.RecordName); s.RecordName == "" {
		s.RecordName = "user"
	}
	s.EncryptionKey = strings.TrimSpace(s.EncryptionKey)
}

// Validate rejects unknown store kinds.
func (s SessionConfig) Validate() error {
	switch s.Store {
	case SessionStoreFile, SessionStoreRedis:
		return nil
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreFile, SessionStoreRedis, s.Store)
	}
}

// RedisConfig contains Redis configuration for the redis session store.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}
