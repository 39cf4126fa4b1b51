package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/tokengate/config"
)

// openRedis returns nil when REDIS_ADDR is empty; the engine then keeps
// credentials and rate windows in memory.
func openRedis(ctx context.Context, s *config.Settings, log zerolog.Logger) (redis.UniversalClient, func(), error) {
	if s.RedisAddr == "" {
		return nil, func() {}, nil
	}

	addr := s.RedisAddr
	var mr *miniredis.Miniredis
	if addr == config.RedisAddrMiniredis {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		log.Warn().Str("addr", addr).Msg("using embedded miniredis; data is lost on exit")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	})
	cleanup := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	log.Info().Str("addr", addr).Int("db", s.RedisDB).Msg("redis connected")
	return client, cleanup, nil
}
