package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrLeaseLost is returned when another relay took over mid-batch.
var ErrLeaseLost = errors.New("relay lease lost")

// releaseScript deletes the lease only if this holder still owns it.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// extendScript resets the TTL only if this holder still owns the lease.
const extendScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("PEXPIRE", KEYS[1], ARGV[2]) else return 0 end`

// Locker keeps at most one relay publishing at a time.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Extend(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// RedisLease is a SET NX PX lease identified by a per-process token.
type RedisLease struct {
	rdb   *redis.Client
	key   string
	token string
	ttl   time.Duration
}

func NewRedisLease(rdb *redis.Client, key, token string, ttl time.Duration) *RedisLease {
	return &RedisLease{rdb: rdb, key: key, token: token, ttl: ttl}
}

func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	return l.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
}

// Extend pushes the expiry out by a full ttl. False means the lease expired
// and may now belong to someone else.
func (l *RedisLease) Extend(ctx context.Context) (bool, error) {
	n, err := l.rdb.Eval(ctx, extendScript, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *RedisLease) Release(ctx context.Context) error {
	return l.rdb.Eval(ctx, releaseScript, []string{l.key}, l.token).Err()
}
