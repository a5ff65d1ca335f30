package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
)

var releaseScript = redis.NewScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// LockRepository provides a best-effort distributed mutex on Redis (SET NX PX).
// With a nil client every acquisition succeeds, which is correct for a single instance.
type LockRepository struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewLockRepository constructs the repository.
func NewLockRepository(client *redis.Client, logger *zap.Logger) *LockRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockRepository{client: client, prefix: "campus-billing:lock:", logger: logger}
}

// Acquire takes the named lock for ttl and returns the token needed to release it.
// It returns ErrLockNotAcquired when another holder owns the lock.
func (r *LockRepository) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	if r.client == nil {
		return token, nil
	}
	ok, err := r.client.SetNX(ctx, r.prefix+name, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis acquire lock %s: %w", name, err)
	}
	if !ok {
		return "", appErrors.ErrLockNotAcquired
	}
	return token, nil
}

// Release drops the lock if token still owns it.
func (r *LockRepository) Release(ctx context.Context, name, token string) error {
	if r.client == nil {
		return nil
	}
	deleted, err := releaseScript.Run(ctx, r.client, []string{r.prefix + name}, token).Int()
	if err != nil {
		return fmt.Errorf("redis release lock %s: %w", name, err)
	}
	if deleted == 0 {
		r.logger.Warn("lock expired before release", zap.String("lock", name))
	}
	return nil
}
