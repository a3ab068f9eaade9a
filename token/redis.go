package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps backend transport failures so callers can tell
// them apart from lifecycle outcomes.
var ErrStoreUnavailable = errors.New("token store unavailable")

const (
	redeemStatusNotFound = 0
	redeemStatusExpired  = 1
	redeemStatusReused   = 2
	redeemStatusRedeemed = 3
)

// Each record is a hash keyed by its opaque value; a per-user set tracks
// values that may still be live. The scripts read and write both under
// Redis's single-threaded execution, which is what makes Redeem and
// RevokeAllForUser atomic.
const redeemScript = `
local record_key = KEYS[1]
local live_key = KEYS[2]
local value = ARGV[1]
local user_id = ARGV[2]
local now = tonumber(ARGV[3])

if redis.call("EXISTS", record_key) == 0 then
  return {0}
end
if redis.call("HGET", record_key, "user") ~= user_id then
  return {0}
end

local expires = tonumber(redis.call("HGET", record_key, "expires"))
if now > expires then
  redis.call("SREM", live_key, value)
  return {1}
end

local used = redis.call("HGET", record_key, "used")
local revoked = redis.call("HGET", record_key, "revoked")
if used == "1" or revoked == "1" then
  return {2}
end

redis.call("HSET", record_key, "used", "1")
redis.call("SREM", live_key, value)
return {3, redis.call("HGET", record_key, "jti"), redis.call("HGET", record_key, "added"), expires}
`

var redeemLua = redis.NewScript(redeemScript)

const revokeAllScript = `
local live_key = KEYS[1]
local record_prefix = ARGV[1]
local now = tonumber(ARGV[2])
local count = 0

local members = redis.call("SMEMBERS", live_key)
for _, value in ipairs(members) do
  local record_key = record_prefix .. value
  local used = redis.call("HGET", record_key, "used")
  local revoked = redis.call("HGET", record_key, "revoked")
  local expires = tonumber(redis.call("HGET", record_key, "expires") or "0")
  if used == "0" and revoked == "0" and now <= expires then
    redis.call("HSET", record_key, "revoked", "1")
    count = count + 1
  end
  redis.call("SREM", live_key, value)
end
return count
`

var revokeAllLua = redis.NewScript(revokeAllScript)

// RedisStore keeps refresh-token records in Redis. Records outlive their
// expiry by the retention window so a stale value still classifies as
// expired or reused instead of not found.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisStore wires a store over client. prefix namespaces all keys;
// retention bounds how long records persist past expiry (zero keeps them
// until Redis evicts the keys by memory policy).
func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		return nil, errors.New("key prefix is required")
	}
	if retention < 0 {
		return nil, errors.New("retention must be >= 0")
	}

	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		retention: retention,
	}, nil
}

func (s *RedisStore) recordKey(value string) string {
	return s.prefix + ":rt:" + value
}

func (s *RedisStore) recordKeyPrefix() string {
	return s.prefix + ":rt:"
}

func (s *RedisStore) liveKey(userID string) string {
	return s.prefix + ":live:" + userID
}

func (s *RedisStore) Add(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Value == "" || rec.UserID == "" {
		return errors.New("record requires value and user id")
	}

	recordKey := s.recordKey(rec.Value)
	liveKey := s.liveKey(rec.UserID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, recordKey,
			"user", rec.UserID,
			"jti", rec.JTI,
			"used", boolField(rec.Used),
			"revoked", boolField(rec.Revoked),
			"added", rec.AddedAt.Unix(),
			"expires", rec.ExpiresAt.Unix(),
		)
		pipe.SAdd(ctx, liveKey, rec.Value)
		if s.retention > 0 {
			dropAt := rec.ExpiresAt.Add(s.retention)
			pipe.PExpireAt(ctx, recordKey, dropAt)
			pipe.PExpireAt(ctx, liveKey, dropAt)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

func (s *RedisStore) Find(ctx context.Context, value, userID string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(value)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 || fields["user"] != userID {
		return nil, ErrNotFound
	}

	added, _ := strconv.ParseInt(fields["added"], 10, 64)
	expires, _ := strconv.ParseInt(fields["expires"], 10, 64)

	return &Record{
		UserID:    userID,
		Value:     value,
		JTI:       fields["jti"],
		Used:      fields["used"] == "1",
		Revoked:   fields["revoked"] == "1",
		AddedAt:   time.Unix(added, 0).UTC(),
		ExpiresAt: time.Unix(expires, 0).UTC(),
	}, nil
}

func (s *RedisStore) Redeem(ctx context.Context, value, userID string, now time.Time) (*Record, error) {
	result, err := redeemLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(value), s.liveKey(userID)},
		value,
		userID,
		now.Unix(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid redeem script response", ErrStoreUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid redeem script status", ErrStoreUnavailable)
	}

	switch code {
	case redeemStatusNotFound:
		return nil, ErrNotFound
	case redeemStatusExpired:
		return nil, ErrExpired
	case redeemStatusReused:
		return nil, ErrReused
	case redeemStatusRedeemed:
		if len(parts) < 4 {
			return nil, fmt.Errorf("%w: missing redeemed record fields", ErrStoreUnavailable)
		}
		jti, _ := parts[1].(string)
		added := scriptInt(parts[2])
		expires := scriptInt(parts[3])

		return &Record{
			UserID:    userID,
			Value:     value,
			JTI:       jti,
			Used:      true,
			AddedAt:   time.Unix(added, 0).UTC(),
			ExpiresAt: time.Unix(expires, 0).UTC(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown redeem script status", ErrStoreUnavailable)
	}
}

func (s *RedisStore) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	result, err := revokeAllLua.Run(
		ctx,
		s.redis,
		[]string{s.liveKey(userID)},
		s.recordKeyPrefix(),
		time.Now().Unix(),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: invalid revoke script response", ErrStoreUnavailable)
	}

	return count, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func scriptInt(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}
