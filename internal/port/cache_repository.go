package port

import "context"

type CacheRepository interface {
	// SetIdempotency claims key, returns false if it is already claimed
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// CompleteIdempotency records the order created under a claimed key
	CompleteIdempotency(ctx context.Context, key string, orderID int64) error

	// LookupIdempotency returns the order recorded under key, if any
	LookupIdempotency(ctx context.Context, key string) (int64, bool, error)

	// ReleaseIdempotency frees key so the request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}
