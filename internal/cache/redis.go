package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Stamps travel as fixed-width unix nanoseconds and are compared as strings,
// which keeps full precision where Lua's doubles would round.
var casScript = goredis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'stamp', 'valid', 'payload', 'expiry')
if cur[1] then
  local stamp = cur[1]
  local start = ARGV[1]
  if stamp > start or (stamp == start and cur[2] == '0') then
    return {0, cur[1], cur[2], cur[3], cur[4]}
  end
end
redis.call('HSET', KEYS[1], 'stamp', ARGV[1], 'valid', '1', 'payload', ARGV[2], 'expiry', ARGV[3])
return {1}
`)

var invalidateScript = goredis.NewScript(`
local at = ARGV[1]
local cur = redis.call('HGET', KEYS[1], 'stamp')
if cur and cur > at then
  at = cur
end
redis.call('HSET', KEYS[1], 'stamp', at, 'valid', '0', 'payload', '', 'expiry', '')
return 1
`)

// RedisBackend shares entries between processes through Redis hashes.
// Payloads are JSON encoded, so T must survive a JSON round trip.
type RedisBackend[T any] struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedisBackend[T any](rdb goredis.UniversalClient, prefix string) *RedisBackend[T] {
	return &RedisBackend[T]{rdb: rdb, prefix: prefix}
}

func (b *RedisBackend[T]) redisKey(key string) string {
	return b.prefix + key
}

func (b *RedisBackend[T]) Load(ctx context.Context, key string) (Entry[T], bool, error) {
	vals, err := b.rdb.HMGet(ctx, b.redisKey(key), "stamp", "valid", "payload", "expiry").Result()
	if err != nil {
		return Entry[T]{}, false, fmt.Errorf("redis load: %w", err)
	}
	if len(vals) == 0 || vals[0] == nil {
		return Entry[T]{}, false, nil
	}
	e, err := decodeEntry[T](vals)
	if err != nil {
		return Entry[T]{}, false, err
	}
	return e, true, nil
}

func (b *RedisBackend[T]) CompareAndSwap(ctx context.Context, key string, start time.Time, entry Entry[T]) (Entry[T], bool, error) {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return Entry[T]{}, false, fmt.Errorf("encode payload: %w", err)
	}
	expiry := ""
	if entry.SoftExpiry != nil {
		expiry = strconv.FormatInt(entry.SoftExpiry.UnixNano(), 10)
	}

	res, err := casScript.Run(ctx, b.rdb, []string{b.redisKey(key)},
		formatStamp(start), string(payload), expiry).Slice()
	if err != nil {
		return Entry[T]{}, false, fmt.Errorf("redis cas: %w", err)
	}
	if len(res) == 0 {
		return Entry[T]{}, false, fmt.Errorf("redis cas: empty reply")
	}
	if n, _ := res[0].(int64); n == 1 {
		return entry, true, nil
	}
	cur, err := decodeEntry[T](res[1:])
	if err != nil {
		return Entry[T]{}, false, err
	}
	return cur, false, nil
}

func (b *RedisBackend[T]) Invalidate(ctx context.Context, key string, at time.Time) error {
	err := invalidateScript.Run(ctx, b.rdb, []string{b.redisKey(key)},
		formatStamp(at)).Err()
	if err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}

// decodeEntry reads the [stamp, valid, payload, expiry] reply shape.
func formatStamp(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

func decodeEntry[T any](vals []any) (Entry[T], error) {
	var e Entry[T]
	field := func(i int) string {
		if i >= len(vals) || vals[i] == nil {
			return ""
		}
		s, _ := vals[i].(string)
		return s
	}

	stamp, err := strconv.ParseInt(field(0), 10, 64)
	if err != nil {
		return e, fmt.Errorf("decode stamp: %w", err)
	}
	e.Stamp = time.Unix(0, stamp).UTC()
	e.Valid = field(1) == "1"
	if !e.Valid {
		return e, nil
	}

	if err := json.Unmarshal([]byte(field(2)), &e.Payload); err != nil {
		return e, fmt.Errorf("decode payload: %w", err)
	}
	if exp := field(3); exp != "" {
		nanos, err := strconv.ParseInt(exp, 10, 64)
		if err != nil {
			return e, fmt.Errorf("decode expiry: %w", err)
		}
		t := time.Unix(0, nanos).UTC()
		e.SoftExpiry = &t
	}
	return e, nil
}
