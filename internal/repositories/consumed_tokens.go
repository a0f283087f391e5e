package repositories

import (
	"context"
	"time"
)

// ConsumedTokenRegistry remembers redeemed credentials until they would have
// expired anyway. Consume returns false when the digest was already taken.
// Release gives a claimed digest back when the redemption could not complete.
type ConsumedTokenRegistry interface {
	Consume(ctx context.Context, digest string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, digest string) error
}
