package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRetryInterval is how long Redis waits between acquisition attempts
const DefaultRetryInterval = 50 * time.Millisecond

// release deletes the key only if it still holds our token, so an expired
// lock that was taken over by another replica is left alone.
var release = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis serialises writers across processes sharing one Redis server
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

// NewRedis creates a lock on key. The ttl bounds how long a crashed holder
// can block other writers.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client: client,
		key:    key,
		ttl:    ttl,
		retry:  DefaultRetryInterval,
		logger: logger,
	}
}

// Lock polls SET NX until it succeeds or ctx is done
func (r *Redis) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire redis lock %s: %w", r.key, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() { r.unlock(token) })
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}
}

func (r *Redis) unlock(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := release.Run(ctx, r.client, []string{r.key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn("failed to release redis lock", "key", r.key, "error", err)
	}
}
