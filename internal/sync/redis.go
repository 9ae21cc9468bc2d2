package syncx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultChannel = "mockme.events"

// RedisPublisher fans events out over Redis pub/sub.
type RedisPublisher struct {
	client  redis.Cmdable
	channel string
}

func NewRedisPublisher(client redis.Cmdable, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

type wireEvent struct {
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	data := json.RawMessage(e.DataJSON)
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	created := e.CreatedAt
	if created == 0 {
		created = time.Now().Unix()
	}
	msg, err := json.Marshal(wireEvent{Type: e.Type, Key: e.Key, Data: data, CreatedAt: created})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, msg).Err()
}
