package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment-aggregator/internal/core/ports"

	"github.com/rs/zerolog"
)

// ErrLeaseNotAcquired is returned when the shared-store lease stays held
// elsewhere for the whole acquisition window.
var ErrLeaseNotAcquired = errors.New("lease not acquired")

const (
	// acquireAttempts bounds how long a contended caller waits for the
	// shared lease before giving up: attempts-1 sleeps of ttl/2 each.
	acquireAttempts = 4
	releaseTimeout  = 2 * time.Second
)

// Leased is the cross-instance KeyedMutex: the Local mutex serializes
// callers inside this process, and a lease record in the shared store
// excludes other instances. The lease carries a TTL and is renewed by a
// heartbeat while the critical section runs, so a crashed holder's lease
// expires and is reclaimable.
type Leased struct {
	local *Local
	store ports.LeaseStore
	ttl   time.Duration
	log   zerolog.Logger
}

// NewLeased creates a lease-backed keyed mutex.
func NewLeased(store ports.LeaseStore, ttl time.Duration, log zerolog.Logger) *Leased {
	return &Leased{
		local: NewLocal(),
		store: store,
		ttl:   ttl,
		log:   log,
	}
}

// RunExclusive acquires the in-process lock, then the shared lease, runs
// fn, and releases both. The lease is renewed at ttl/3 intervals until fn
// returns.
func (m *Leased) RunExclusive(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return m.local.RunExclusive(ctx, key, func(ctx context.Context) error {
		leaseID, err := m.acquire(ctx, key)
		if err != nil {
			return err
		}

		renewCtx, stopRenew := context.WithCancel(ctx)
		renewDone := make(chan struct{})
		go m.renewLoop(renewCtx, key, leaseID, renewDone)

		defer func() {
			stopRenew()
			<-renewDone

			// Release on a fresh context: the caller's context may already
			// be cancelled and the lease must still be freed.
			relCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := m.store.Release(relCtx, key, leaseID); err != nil {
				m.log.Warn().Err(err).Str("key", key).Msg("lease release failed, will expire by TTL")
			}
		}()

		return fn(ctx)
	})
}

func (m *Leased) acquire(ctx context.Context, key string) (string, error) {
	wait := m.ttl / 2
	for attempt := 0; attempt < acquireAttempts; attempt++ {
		leaseID, err := m.store.Acquire(ctx, key, m.ttl)
		if err != nil {
			return "", fmt.Errorf("acquire lease for %s: %w", key, err)
		}
		if leaseID != "" {
			return leaseID, nil
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("key %s: %w", key, ErrLeaseNotAcquired)
}

// renewLoop extends the lease while the critical section is still running.
// A lost lease (renewal returns false) stops the heartbeat; the section
// keeps running since aborting midway would be worse than finishing.
func (m *Leased) renewLoop(ctx context.Context, key, leaseID string, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := m.store.Renew(ctx, key, leaseID, m.ttl)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.log.Warn().Err(err).Str("key", key).Msg("lease renewal failed")
				continue
			}
			if !ok {
				m.log.Error().Str("key", key).Msg("lease lost while critical section running")
				return
			}
		}
	}
}
