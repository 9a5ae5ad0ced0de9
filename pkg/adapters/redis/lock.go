package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Lock implements ports.InvocationLocker with SET NX PX, polling until the
// lock is free or ctx is done.
func (c *Cache) Lock(ctx context.Context, key domain.CacheKey) (ports.UnlockFunc, error) {
	lockKey := c.prefix + "lock:" + key.String()
	token := uuid.NewString()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		ok, err := c.client.SetNX(ctx, lockKey, token, c.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				return c.client.Eval(ctx, unlockScript, []string{lockKey}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
