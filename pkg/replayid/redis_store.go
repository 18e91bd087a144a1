package replayid

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua scripts keep the compare-and-* steps atomic on the server, mirroring
// the single-critical-section guarantee of the in-memory store.
var (
	compareAndDeleteScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v or v ~= ARGV[1] then return 0 end
return redis.call('DEL', KEYS[1])`)

	replaceScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v or v ~= ARGV[1] then return 0 end
if redis.call('EXISTS', KEYS[2]) == 1 then return 0 end
redis.call('DEL', KEYS[1])
redis.call('SET', KEYS[2], ARGV[1], 'PXAT', ARGV[1])
return 1`)

	updateExpiryScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v or v ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PXAT', ARGV[2])
return 1`)
)

// RedisStore implements Store on a shared redis instance for
// multi-instance deployments. Each id maps to its expiry in unix
// milliseconds; redis TTLs double as the sweep.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a redis-backed replay-id store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "replayid"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + ":" + id
}

func msArg(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Put stores id with its expiry using SET NX PXAT.
func (r *RedisStore) Put(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	res, err := r.client.SetArgs(ctx, r.key(id), msArg(expiresAt), redis.SetArgs{
		Mode:     "NX",
		ExpireAt: expiresAt,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Join(ErrStoreFailure, err)
	}
	return res == "OK", nil
}

// Get returns the expiry recorded for id.
func (r *RedisStore) Get(ctx context.Context, id string) (time.Time, bool, error) {
	v, err := r.client.Get(ctx, r.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Join(ErrStoreFailure, err)
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, errors.Join(ErrStoreFailure, err)
	}
	return time.UnixMilli(ms), true, nil
}

// CompareAndDelete removes id only when its recorded expiry matches.
func (r *RedisStore) CompareAndDelete(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, r.client, []string{r.key(id)}, msArg(expiresAt)).Int()
	if err != nil {
		return false, errors.Join(ErrStoreFailure, err)
	}
	return n == 1, nil
}

// Delete removes id unconditionally.
func (r *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return false, errors.Join(ErrStoreFailure, err)
	}
	return n == 1, nil
}

// Replace atomically consumes oldID and stores newID under the same
// expiry.
func (r *RedisStore) Replace(ctx context.Context, oldID string, expiresAt time.Time, newID string) (bool, error) {
	n, err := replaceScript.Run(ctx, r.client,
		[]string{r.key(oldID), r.key(newID)}, msArg(expiresAt)).Int()
	if err != nil {
		return false, errors.Join(ErrStoreFailure, err)
	}
	return n == 1, nil
}

// UpdateExpiry moves id's expiry forward after verifying the previous one.
func (r *RedisStore) UpdateExpiry(ctx context.Context, id string, oldExpiresAt, newExpiresAt time.Time) (bool, error) {
	n, err := updateExpiryScript.Run(ctx, r.client,
		[]string{r.key(id)}, msArg(oldExpiresAt), msArg(newExpiresAt)).Int()
	if err != nil {
		return false, errors.Join(ErrStoreFailure, err)
	}
	return n == 1, nil
}
