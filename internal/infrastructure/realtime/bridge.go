package realtime

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	chat "marketchat/internal/pkg/chat/domain"
)

// RedisPublisher publishes inserted-message events to the shared redis
// channel. Worker processes use it so a queued send still reaches sessions
// held by API nodes.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(url string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisPublisher{client: redis.NewClient(opt)}, nil
}

func (p *RedisPublisher) PublishMessage(ctx context.Context, m chat.Message) error {
	payload, err := json.Marshal(NewMessageEvent(m))
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Channel, payload).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Bridge subscribes an API node's hub to the shared channel and replays every
// event into the local rooms. The per-connection delivery window keeps a
// session from seeing the same message twice when an event arrives both
// directly and through the bridge.
type Bridge struct {
	client *redis.Client
	hub    *Hub
	log    zerolog.Logger
}

func NewBridge(url string, hub *Hub, log zerolog.Logger) (*Bridge, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Bridge{client: redis.NewClient(opt), hub: hub, log: log}, nil
}

// Run consumes the channel until ctx is canceled. The subscription is released
// on every exit path.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, Channel)
	defer func() {
		_ = sub.Close()
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev MessageEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn().Err(err).Msg("dropping malformed message event")
				continue
			}
			b.hub.Broadcast(ev.ConversationID, ev.Message.ID, []byte(msg.Payload))
		}
	}
}

func (b *Bridge) Close() error {
	return b.client.Close()
}
