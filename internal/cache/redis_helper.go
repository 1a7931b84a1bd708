package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nandorodriques37/planejamento-compras-app/internal/config"
)

const (
	defaultCacheTTL   = 10 * time.Minute
	redisClientName   = "planejamento-compras"
	redisDialTimeout  = 5 * time.Second
	redisPingDeadline = 5 * time.Second
)

// redisStore wraps a client with the entry ttl of the projection cache.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func dialRedis(cfg config.CacheConfig) (*redisStore, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.ClientName = redisClientName
	if opts.DialTimeout == 0 {
		opts.DialTimeout = redisDialTimeout
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingDeadline)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	store := &redisStore{client: client, ttl: cfg.TTL()}
	if store.ttl <= 0 {
		store.ttl = defaultCacheTTL
	}
	return store, nil
}

// buildRedisOptions prefers REDIS_URL and falls back to host/port/db.
func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// unlinkPrefix walks the keyspace with SCAN and unlinks every key under
// prefix, one pipeline per scanned page.
func (s *redisStore) unlinkPrefix(ctx context.Context, prefix string, pageSize int64) (int, error) {
	iter := s.client.Scan(ctx, 0, prefix+":*", pageSize).Iterator()
	removed := 0
	page := make([]string, 0, pageSize)

	flush := func() error {
		if len(page) == 0 {
			return nil
		}
		_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.Unlink(ctx, page...)
			return nil
		})
		if err != nil {
			return fmt.Errorf("redis unlink: %w", err)
		}
		removed += len(page)
		page = page[:0]
		return nil
	}

	for iter.Next(ctx) {
		page = append(page, iter.Val())
		if int64(len(page)) >= pageSize {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	if err := flush(); err != nil {
		return removed, err
	}
	return removed, nil
}
