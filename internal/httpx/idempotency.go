package httpx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quangdm/go-storefront.git/internal/orders"
	"github.com/quangdm/go-storefront.git/internal/redisx"
)

// claimPending marks an Idempotency-Key whose checkout is still in flight.
const claimPending = "__pending__"

// IdemStore backs the Idempotency-Key header. Claim must be atomic: of two
// concurrent requests carrying the same key, exactly one may own it and place
// an order; the other sees the claim and never touches stock.
type IdemStore interface {
	// Claim returns claimed=true when the caller now owns the key. Otherwise
	// orderID carries the committed order for a finished checkout, or "" when
	// the owning checkout has not finished yet.
	Claim(ctx context.Context, key string) (claimed bool, orderID string, err error)
	// Complete records the order id under an owned key.
	Complete(ctx context.Context, key, orderID string) error
	// Release frees an owned key after a failed checkout so the client can
	// retry with the same key.
	Release(ctx context.Context, key string) error
}

// RedisIdem implements IdemStore on redis; SETNX is the claim.
type RedisIdem struct{ C *redis.Client }

func (s *RedisIdem) Claim(ctx context.Context, key string) (bool, string, error) {
	k := fmt.Sprintf(redisx.KeyIdemCheckout, key)
	ok, err := s.C.SetNX(ctx, k, claimPending, redisx.TTLIdempotency).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "", nil
	}
	v, err := s.C.Get(ctx, k).Result()
	if err != nil {
		return false, "", err
	}
	if v == claimPending {
		return false, "", nil
	}
	return false, v, nil
}

func (s *RedisIdem) Complete(ctx context.Context, key, orderID string) error {
	return s.C.Set(ctx, fmt.Sprintf(redisx.KeyIdemCheckout, key), orderID, redisx.TTLIdempotency).Err()
}

func (s *RedisIdem) Release(ctx context.Context, key string) error {
	return s.C.Del(ctx, fmt.Sprintf(redisx.KeyIdemCheckout, key)).Err()
}

// StatusCache fronts order status reads; writes are best effort.
type StatusCache interface {
	PutStatus(ctx context.Context, orderID string, st orders.Status)
}

type RedisStatusCache struct{ C *redis.Client }

func (c *RedisStatusCache) PutStatus(ctx context.Context, orderID string, st orders.Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = c.C.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, st), redisx.TTLStatusCache).Err()
}
