package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultChannel is the Redis pub/sub channel shared by all instances.
const DefaultChannel = "th:realtime"

type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisBridge relays hub events through Redis pub/sub so clients connected
// to any instance see every change.  Each instance ignores its own
// messages.
type RedisBridge struct {
	rdb     *redis.Client
	hub     *Hub
	channel string
	origin  string
	log     logrus.FieldLogger
}

func NewRedisBridge(rdb *redis.Client, hub *Hub, channel string, log logrus.FieldLogger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	b := &RedisBridge{
		rdb:     rdb,
		hub:     hub,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log.WithField("component", "realtime-bridge"),
	}
	hub.SetRelay(b.relay)
	return b
}

func (b *RedisBridge) relay(e Event) {
	payload, err := json.Marshal(envelope{Origin: b.origin, Event: e})
	if err != nil {
		b.log.WithError(err).Error("encode relay envelope")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.WithError(err).WithField("topic", e.Topic).Warn("relay event")
	}
}

// handle injects a remote event into the local hub.  It reports whether
// the message was accepted.
func (b *RedisBridge) handle(payload string) bool {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.log.WithError(err).Warn("malformed relay message")
		return false
	}
	if env.Origin == b.origin {
		return false
	}
	b.hub.Deliver(env.Event)
	return true
}

// Run subscribes until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()
	b.log.WithField("channel", b.channel).Info("realtime bridge subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(msg.Payload)
		}
	}
}
