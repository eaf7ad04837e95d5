package store

import (
	"context"
	"errors"

	"github.com/dailyyoga/offlinekit/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis stores records as plain string keys in a Redis database
type Redis struct {
	logger logger.Logger
	client *redis.Client
	prefix string
}

// NewRedis connects to redis and verifies the connection with PING
func NewRedis(log logger.Logger, cfg *RedisConfig) (*Redis, error) {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = logger.Named(log, "store.redis")
	client := redis.NewClient(cfg.Options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, ErrConnection(err)
	}

	log.Info("redis store connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("key_prefix", cfg.KeyPrefix),
	)

	return &Redis{logger: log, client: client, prefix: cfg.KeyPrefix}, nil
}

func (r *Redis) key(key string) string {
	return r.prefix + key
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ErrRead(key, err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return ErrWrite(key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return ErrWrite(key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
