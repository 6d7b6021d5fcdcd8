package linkcache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "linkcache"

// RedisStore keeps verdicts in redis so they survive restarts. TTLs use
// redis expiry natively; domain invalidation scans the host prefix.
type RedisStore struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisStore(client *redis.Client, log zerolog.Logger) *RedisStore {
	return &RedisStore{client: client, log: log}
}

func redisKey(key string) string {
	sum := sha1.Sum([]byte(key))
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, hostOf(key), hex.EncodeToString(sum[:]))
}

func (s *RedisStore) Get(ctx context.Context, key string) (Verdict, bool) {
	raw, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn().Err(err).Msg("linkcache redis get failed")
		}
		return Verdict{}, false
	}
	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Warn().Err(err).Msg("linkcache redis entry corrupt")
		return Verdict{}, false
	}
	return v, true
}

func (s *RedisStore) Set(ctx context.Context, key string, v Verdict, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("linkcache marshal verdict failed")
		return
	}
	if err := s.client.Set(ctx, redisKey(key), raw, ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("linkcache redis set failed")
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		s.log.Warn().Err(err).Msg("linkcache redis delete failed")
	}
}

func (s *RedisStore) DeleteDomain(ctx context.Context, host string) int {
	pattern := fmt.Sprintf("%s:%s:*", redisKeyPrefix, host)
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()

	n := 0
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.log.Warn().Err(err).Str("key", iter.Val()).Msg("linkcache redis delete failed")
			continue
		}
		n++
	}
	if err := iter.Err(); err != nil {
		s.log.Warn().Err(err).Str("host", host).Msg("linkcache redis scan failed")
	}
	return n
}

// PurgeExpired is a no-op: redis expires entries itself.
func (s *RedisStore) PurgeExpired(context.Context) int { return 0 }
