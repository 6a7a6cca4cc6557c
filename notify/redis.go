package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// RedisBus publishes events on a Redis channel so every instance can relay
// them to its own SSE clients.
type RedisBus struct {
	client  *redis.Client
	channel string
	timeout time.Duration
	log     *logrus.Entry
}

func NewRedisBus(client *redis.Client, channel string, log *logrus.Entry) *RedisBus {
	return &RedisBus{client: client, channel: channel, timeout: 2 * time.Second, log: log}
}

func (b *RedisBus) Publish(eventType, matchID string) {
	ev := Event{Type: eventType, MatchID: matchID, At: time.Now().UTC()}
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.WithError(err).Warn("encode event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.WithError(err).WithField("event", eventType).Warn("redis publish failed")
	}
}

// Relay forwards events from a Redis channel into a local hub.
type Relay struct {
	pubsub *redis.PubSub
	log    *logrus.Entry
}

// NewRelay subscribes to channel and returns once Redis confirmed the
// subscription, so no event published afterwards is missed.
func NewRelay(ctx context.Context, client *redis.Client, channel string, log *logrus.Entry) (*Relay, error) {
	ps := client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, eris.Wrapf(err, "subscribe to %s", channel)
	}
	return &Relay{pubsub: ps, log: log}, nil
}

// Run delivers messages to hub until ctx is done.
func (r *Relay) Run(ctx context.Context, hub *Hub) {
	defer r.pubsub.Close()
	msgs := r.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.log.WithError(err).Warn("dropping malformed event")
				continue
			}
			hub.Deliver(ev)
		}
	}
}
