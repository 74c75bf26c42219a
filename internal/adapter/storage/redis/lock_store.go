package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// renewScript extends the lease's TTL only if the caller still owns it.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript deletes the lease only if the caller still owns it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaseStore implements ports.LeaseStore on Redis. A lease is a key holding
// the owner's lease id with a TTL; SET NX gives atomic acquire, and the Lua
// scripts make renew/release conditional on still owning the lease. An
// expired key is reclaimable by the next Acquire, which covers crashed
// holders.
type LeaseStore struct {
	client *goredis.Client
	prefix string
}

// NewLeaseStore creates a Redis-backed lease store.
func NewLeaseStore(client *goredis.Client) *LeaseStore {
	return &LeaseStore{
		client: client,
		prefix: "lease:",
	}
}

// Acquire takes the lease for resourceID if it is free or expired.
// Returns the new lease id, or "" when the lease is held elsewhere.
func (s *LeaseStore) Acquire(ctx context.Context, resourceID string, ttl time.Duration) (string, error) {
	leaseID := uuid.NewString()
	ok, err := s.client.SetNX(ctx, s.prefix+resourceID, leaseID, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis lease acquire: %w", err)
	}
	if !ok {
		return "", nil
	}
	return leaseID, nil
}

// Renew extends the lease's expiry if leaseID still owns it.
func (s *LeaseStore) Renew(ctx context.Context, resourceID, leaseID string, ttl time.Duration) (bool, error) {
	res, err := renewScript.Run(ctx, s.client, []string{s.prefix + resourceID}, leaseID, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis lease renew: %w", err)
	}
	return res == 1, nil
}

// Release deletes the lease if leaseID still owns it. Releasing a lease
// already taken over by someone else is a no-op.
func (s *LeaseStore) Release(ctx context.Context, resourceID, leaseID string) error {
	if _, err := releaseScript.Run(ctx, s.client, []string{s.prefix + resourceID}, leaseID).Int(); err != nil {
		return fmt.Errorf("redis lease release: %w", err)
	}
	return nil
}
