package contacts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	contact:<number>  hash  name, emergency_contact
//	blocked           set   numbers
//	calllog           list  JSON LogEntry, newest first, trimmed
const (
	contactKeyPrefix = "contact:"
	blockedKey       = "blocked"
	callLogKey       = "calllog"
)

// maxLogEntries bounds the call-log list.
const maxLogEntries = 500

// RedisStore is the Redis-backed Store.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis %s: %w", addr, err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Lookup(ctx context.Context, number string) (Contact, error) {
	vals, err := s.rdb.HGetAll(ctx, contactKeyPrefix+number).Result()
	if err != nil {
		return Contact{}, fmt.Errorf("contact lookup: %w", err)
	}
	if len(vals) == 0 {
		return Contact{}, fmt.Errorf("%w: %s", ErrNotFound, number)
	}
	return Contact{
		Number:           number,
		Name:             vals["name"],
		EmergencyContact: vals["emergency_contact"] == "1",
	}, nil
}

func (s *RedisStore) IsBlocked(ctx context.Context, number string) (bool, error) {
	blocked, err := s.rdb.SIsMember(ctx, blockedKey, number).Result()
	if err != nil {
		return false, fmt.Errorf("block list lookup: %w", err)
	}
	return blocked, nil
}

func (s *RedisStore) AddLog(ctx context.Context, e LogEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling log entry: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, callLogKey, data)
	pipe.LTrim(ctx, callLogKey, 0, maxLogEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending call log: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
