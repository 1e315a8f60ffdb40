package worker

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Lease is a Redis leader lease so only one replica sweeps at a time
type Lease interface {
	Acquire(ctx context.Context) bool
	Release(ctx context.Context)
}

// AlwaysLeader is used when no Redis is configured
type AlwaysLeader struct{}

func (AlwaysLeader) Acquire(context.Context) bool { return true }
func (AlwaysLeader) Release(context.Context)      {}

type RedisLease struct {
	client     goredis.UniversalClient
	key        string
	instanceID string
	ttl        time.Duration
}

func NewRedisLease(client goredis.UniversalClient, role, instanceID string, ttl time.Duration) *RedisLease {
	return &RedisLease{
		client:     client,
		key:        "{bosun}:leader:" + role,
		instanceID: instanceID,
		ttl:        ttl,
	}
}

var renewLeaseScript = goredis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
  return redis.call('pexpire', KEYS[1], ARGV[2])
else
  return 0
end
`)

var releaseLeaseScript = goredis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
  return redis.call('del', KEYS[1])
else
  return 0
end
`)

// Acquire takes the lease or renews it if this instance already holds it
func (l *RedisLease) Acquire(ctx context.Context) bool {
	ok, err := l.client.SetNX(ctx, l.key, l.instanceID, l.ttl).Result()
	if err != nil {
		return false
	}
	if ok {
		return true
	}
	renewed, err := renewLeaseScript.Run(ctx, l.client, []string{l.key}, l.instanceID, l.ttl.Milliseconds()).Int64()
	return err == nil && renewed == 1
}

func (l *RedisLease) Release(ctx context.Context) {
	releaseLeaseScript.Run(ctx, l.client, []string{l.key}, l.instanceID) //nolint:errcheck
}
