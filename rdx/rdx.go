package rdx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Conn is nil when Redis is not configured; callers treat the cache as a
// best-effort layer and fall through to the store.
var Conn *redis.Client

func Init(addr string) error {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return err
	}
	Conn = client
	return nil
}

// GetCached returns the cached payload for key, or "" on miss or when Redis
// is absent.
func GetCached(ctx context.Context, key string) string {
	if Conn == nil {
		return ""
	}
	val, err := Conn.Get(ctx, key).Result()
	if err != nil {
		return ""
	}
	return val
}

func SetCached(ctx context.Context, key, val string, ttl time.Duration) {
	if Conn == nil {
		return
	}
	_ = Conn.Set(ctx, key, val, ttl).Err()
}

func Invalidate(ctx context.Context, keys ...string) {
	if Conn == nil {
		return
	}
	_ = Conn.Del(ctx, keys...).Err()
}
