package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	sa "github.com/panyam/stackauth"
)

// RedisConfig holds Redis connection settings for a RedisCache
type RedisConfig struct {
	Address   string        `env:"ADDR" envDefault:"localhost:6379"`
	Password  string        `env:"PASSWORD"`
	DB        int           `env:"DB" envDefault:"0"`
	KeyPrefix string        `env:"KEY_PREFIX" envDefault:"stackauth:profile:"`
	TTL       time.Duration `env:"TTL" envDefault:"10m"`
}

// RedisCache is a ProfileCache shared across processes.  Profiles are stored
// as JSON under KeyPrefix + TokenKey(token).
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCache connects to Redis and checks the connection
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCacheFromClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (c *RedisCache) key(accessToken string) string {
	return c.keyPrefix + TokenKey(accessToken)
}

func (c *RedisCache) Get(ctx context.Context, accessToken string) (*sa.Profile, error) {
	data, err := c.client.Get(ctx, c.key(accessToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeProfile(data)
}

func (c *RedisCache) Put(ctx context.Context, accessToken string, profile *sa.Profile) error {
	data, err := encodeProfile(profile)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(accessToken), data, c.ttl).Err()
}

// storedProfile is the value kept in Redis.  The raw provider body travels
// with the profile so the parsed JSON can be rebuilt on the way out.
type storedProfile struct {
	Profile *sa.Profile `json:"profile"`
	Raw     string      `json:"raw,omitempty"`
}

func encodeProfile(profile *sa.Profile) ([]byte, error) {
	return json.Marshal(storedProfile{Profile: profile, Raw: profile.Raw})
}

func decodeProfile(data []byte) (*sa.Profile, error) {
	var stored storedProfile
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile: %w", err)
	}
	if stored.Profile == nil {
		return nil, errors.New("failed to decode cached profile: no profile in value")
	}
	profile := stored.Profile
	if stored.Raw != "" {
		profile.Raw = stored.Raw
		dec := json.NewDecoder(strings.NewReader(stored.Raw))
		dec.UseNumber()
		if err := dec.Decode(&profile.JSON); err != nil {
			return nil, fmt.Errorf("failed to decode cached profile body: %w", err)
		}
	}
	return profile, nil
}

// Close closes the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
