package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"walkin/internal/queue"
	"walkin/internal/shared/constants"
)

// QueueChangedEvent tells connected screens to refetch an outlet's queue
type QueueChangedEvent struct {
	Type     string    `json:"type"`
	OutletID uuid.UUID `json:"outlet_id"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

const eventQueueChanged = "queue_changed"

// RedisBroadcaster publishes queue-changed events on one channel per outlet
type RedisBroadcaster struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

var _ queue.Broadcaster = (*RedisBroadcaster)(nil)

func NewRedisBroadcaster(client redis.Cmdable, channelPrefix string) *RedisBroadcaster {
	return &RedisBroadcaster{
		client: client,
		prefix: channelPrefix,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (b *RedisBroadcaster) BroadcastQueueChanged(ctx context.Context, outletID uuid.UUID, reason string) error {
	payload, err := json.Marshal(QueueChangedEvent{
		Type:     eventQueueChanged,
		OutletID: outletID,
		Reason:   reason,
		At:       b.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal queue event: %w", err)
	}

	channel := constants.BuildOutletChannel(b.prefix, outletID.String())
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}
