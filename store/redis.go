package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type listPusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisSink mirrors accepted inputs to a Redis list so that several
// trainers can be collected in one place.
type RedisSink struct {
	client listPusher
	closer func() error
	key    string
}

func NewRedisSink(addr, key string) *RedisSink {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisSink{
		client: cli,
		closer: cli.Close,
		key:    key,
	}
}

func (r *RedisSink) Append(ctx context.Context, rec Record) error {
	bs, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := r.client.RPush(ctx, r.key, string(bs)).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisSink) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
