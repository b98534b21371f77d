package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StatusCache is the shared order-status cache: the API serves reads from it
// and the auditor refreshes it when a capture event lands. Values are the
// JSON body served to clients.
type StatusCache struct{ R *redis.Client }

func (c *StatusCache) GetStatus(ctx context.Context, orderID string) (string, bool) {
	s, err := c.R.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	return s, err == nil && s != ""
}

func (c *StatusCache) SetStatus(ctx context.Context, orderID, status string) {
	val := fmt.Sprintf(`{"status":%q}`, status)
	_ = c.R.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), val, TTLStatusCache).Err()
}

func (c *StatusCache) DelStatus(ctx context.Context, orderID string) {
	_ = c.R.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}
