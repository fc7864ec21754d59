package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/fortyfive/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Twitch retries a delivery for a few minutes at most.
const deliveryWindow = 10 * time.Minute

// DeliveryDedup remembers EventSub message ids so redeliveries are dropped.
type DeliveryDedup struct {
	rdb goredis.Cmdable
}

var _ domain.DeliveryDeduplicator = (*DeliveryDedup)(nil)

func NewDeliveryDedup(rdb goredis.Cmdable) *DeliveryDedup {
	return &DeliveryDedup{rdb: rdb}
}

// FirstDelivery returns true the first time messageID is seen within the window.
func (d *DeliveryDedup) FirstDelivery(ctx context.Context, messageID string) (bool, error) {
	args := goredis.SetArgs{TTL: deliveryWindow, Mode: "NX"}
	_, err := d.rdb.SetArgs(ctx, deliveryKey(messageID), "1", args).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record delivery: %w", err)
	}
	return true, nil
}

func deliveryKey(messageID string) string {
	return "eventsub_message:" + messageID
}
