package kms

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a shared redis instance, making the key
// store usable across multiple processes. Entries live in per-id string
// keys with a TTL matching their expiry, plus a sorted set indexed by
// expiry for Current.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a redis-backed key store. The prefix keeps
// independent instances (otp vs session) from colliding in one database.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "kms"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) entryKey(id string) string {
	return r.prefix + ":kek:" + id
}

func (r *RedisStore) indexKey() string {
	return r.prefix + ":keks"
}

// Put stores a new entry under id using SETNX semantics.
func (r *RedisStore) Put(ctx context.Context, id string, e Entry) (bool, error) {
	value := encodeEntry(e)
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		return false, nil
	}

	ok, err := r.client.SetNX(ctx, r.entryKey(id), value, ttl).Result()
	if err != nil || !ok {
		return false, err
	}

	if err := r.client.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(e.ExpiresAt.UnixMilli()),
		Member: id,
	}).Err(); err != nil {
		// Roll back the entry so a half-indexed key never becomes current.
		_ = r.client.Del(ctx, r.entryKey(id)).Err()
		return false, err
	}
	return true, nil
}

// Get returns the entry for id if present.
func (r *RedisStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	value, err := r.client.Get(ctx, r.entryKey(id)).Result()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e, err := decodeEntry(value)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Delete removes an entry and its index member.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.entryKey(id))
	pipe.ZRem(ctx, r.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// Current returns the live entry with the earliest expiry. Expired index
// members are swept first; index members whose entry key has already been
// evicted by redis TTL are dropped as they are encountered.
func (r *RedisStore) Current(ctx context.Context, now time.Time) (string, Entry, bool, error) {
	nowMs := strconv.FormatInt(now.UnixMilli(), 10)
	if err := r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", nowMs).Err(); err != nil {
		return "", Entry{}, false, err
	}

	// Bounded scan: stale index members are rare, one per evicted key.
	for range maxStoreAttempts {
		ids, err := r.client.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{
			Min: "(" + nowMs, Max: "+inf", Count: 1,
		}).Result()
		if err != nil {
			return "", Entry{}, false, err
		}
		if len(ids) == 0 {
			return "", Entry{}, false, nil
		}
		e, ok, err := r.Get(ctx, ids[0])
		if err != nil {
			return "", Entry{}, false, err
		}
		if ok {
			return ids[0], e, true, nil
		}
		_ = r.client.ZRem(ctx, r.indexKey(), ids[0]).Err()
	}
	return "", Entry{}, false, nil
}

func encodeEntry(e Entry) string {
	return base64.RawURLEncoding.EncodeToString(e.Key) + "|" +
		strconv.FormatInt(e.RotateAt.UnixMilli(), 10) + "|" +
		strconv.FormatInt(e.ExpiresAt.UnixMilli(), 10)
}

func decodeEntry(value string) (Entry, error) {
	parts := strings.Split(value, "|")
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("%w: malformed redis entry", ErrStoreFailure)
	}
	key, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	rotateMs, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	expiresMs, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return Entry{
		Key:       key,
		RotateAt:  time.UnixMilli(rotateMs),
		ExpiresAt: time.UnixMilli(expiresMs),
	}, nil
}
