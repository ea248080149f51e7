package kv

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps values in Redis under "<namespace>:<key>".
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// OpenRedis connects to the Redis server at url and verifies it answers.
func OpenRedis(ctx context.Context, url, namespace string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(client, namespace), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	namespace = strings.TrimSuffix(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		namespace = "pocket"
	}
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) key(k string) string {
	return s.namespace + ":" + k
}

// Get implements Reader.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return getBytes(s.client.Get(ctx, s.key(key)))
}

func getBytes(cmd *redis.StringCmd) ([]byte, bool, error) {
	data, err := cmd.Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements Writer.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

// Delete implements Writer.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.client.Del(ctx, full...).Err()
}

// maxUpdateAttempts bounds how often Update reruns fn when a key it read
// changed before EXEC.
const maxUpdateAttempts = 10

// Update buffers the writes made by fn and commits them in a single
// MULTI/EXEC block. Every key fn reads is WATCHed first, so a concurrent
// change to it aborts the EXEC and fn is run again on fresh values.
// Nothing is sent to Redis if fn returns an error.
func (s *RedisStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			return s.update(ctx, rtx, fn)
		})
		if stderrors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis update: gave up after %d attempts: %w", maxUpdateAttempts, redis.TxFailedErr)
}

func (s *RedisStore) update(ctx context.Context, rtx *redis.Tx, fn func(tx Tx) error) error {
	tx := newBufferedTx(&watchedReader{store: s, rtx: rtx, watched: make(map[string]bool)})
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.order) == 0 {
		return nil
	}
	_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		tx.each(func(key string, value []byte) {
			if value == nil {
				pipe.Del(ctx, s.key(key))
				return
			}
			pipe.Set(ctx, s.key(key), value, 0)
		})
		return nil
	})
	return err
}

// watchedReader WATCHes each key on the transaction's connection before
// reading it.
type watchedReader struct {
	store   *RedisStore
	rtx     *redis.Tx
	watched map[string]bool
}

func (r *watchedReader) Get(ctx context.Context, key string) ([]byte, bool, error) {
	full := r.store.key(key)
	if !r.watched[full] {
		if err := r.rtx.Watch(ctx, full).Err(); err != nil {
			return nil, false, err
		}
		r.watched[full] = true
	}
	return getBytes(r.rtx.Get(ctx, full))
}

// Keys implements Store using SCAN, so it does not block the server.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.key(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace+":"))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
