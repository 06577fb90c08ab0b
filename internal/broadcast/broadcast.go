package broadcast

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/kapu/chess-arena/internal/obslog"
	"go.uber.org/zap"
)

// TopicLobby carries match-found announcements for everyone waiting.
const TopicLobby = "lobby"

// MatchTopic names the per-match topic observers subscribe to.
func MatchTopic(id string) string { return "match:" + strings.TrimSpace(id) }

// Event is the wire shape of every published message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher fans events out to observers. Delivery is fire-and-forget:
// a missed event is recovered by re-reading the match record, so
// implementations never buffer or retry.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev Event) error
}

// Bus is the Redis pub/sub transport behind Publisher.
type Bus struct {
	rdb *redis.Client
}

func NewBus(rdb *redis.Client) *Bus { return &Bus{rdb: rdb} }

func (b *Bus) Publish(ctx context.Context, topic string, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, topic, raw).Err()
}

// Subscription streams raw event frames from one or more topics.
type Subscription struct {
	ps *redis.PubSub
	ch chan []byte
}

// Subscribe opens a subscription on the given topics. The returned
// channel closes when the subscription is closed or the context ends.
func (b *Bus) Subscribe(ctx context.Context, topics ...string) *Subscription {
	sub := &Subscription{
		ps: b.rdb.Subscribe(ctx, topics...),
		ch: make(chan []byte, 16),
	}
	go sub.pump(ctx)
	return sub
}

func (s *Subscription) pump(ctx context.Context) {
	defer close(s.ch)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.ps.Channel():
			if !ok {
				return
			}
			select {
			case s.ch <- []byte(msg.Payload):
			default:
				// Slow observer: drop the frame. It reconciles from the
				// authoritative record.
				obslog.L().Debug("broadcast_drop", zap.String("channel", msg.Channel))
			}
		}
	}
}

// Events returns the frame stream.
func (s *Subscription) Events() <-chan []byte { return s.ch }

func (s *Subscription) Close() error { return s.ps.Close() }
