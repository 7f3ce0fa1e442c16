package checkout

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/redis"
)

const (
	leaseScope      = "checkout"
	defaultLeaseTTL = 2 * time.Minute
)

// LeaseStore is satisfied by *redis.Client.
type LeaseStore interface {
	AcquireLease(ctx context.Context, key, owner string, ttl time.Duration) error
	ReleaseLease(ctx context.Context, key, owner string) error
	LeaseKey(scope, id string) string
}

// leaseGuard serializes checkouts of the same order across instances.
// A nil guard grants every request.
type leaseGuard struct {
	store LeaseStore
	ttl   time.Duration
}

func newLeaseGuard(store LeaseStore, ttl time.Duration) *leaseGuard {
	if store == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &leaseGuard{store: store, ttl: ttl}
}

func (g *leaseGuard) acquire(ctx context.Context, orderID int64) (func(), error) {
	if g == nil {
		return func() {}, nil
	}
	key := g.store.LeaseKey(leaseScope, strconv.FormatInt(orderID, 10))
	owner := uuid.NewString()
	if err := g.store.AcquireLease(ctx, key, owner, g.ttl); err != nil {
		if errors.Is(err, redis.ErrLeaseHeld) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lease")
	}
	return func() {
		// The lease expires on its own if this release fails.
		_ = g.store.ReleaseLease(context.WithoutCancel(ctx), key, owner)
	}, nil
}
