package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewBus(rdb)
}

func recvFrame(t *testing.T, sub *Subscription) []byte {
	t.Helper()
	select {
	case raw, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed before a frame arrived")
		}
		return raw
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
	}
	return nil
}

func TestPublishSubscribe(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := bus.Subscribe(ctx, TopicLobby)
	defer sub.Close()
	// Give the pub/sub registration a moment before publishing.
	time.Sleep(100 * time.Millisecond)

	ev := Event{Type: "match-found", Payload: map[string]string{"match_id": "m-1"}}
	if err := bus.Publish(ctx, TopicLobby, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	raw := recvFrame(t, sub)
	var got Event
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if got.Type != "match-found" {
		t.Fatalf("unexpected type %q", got.Type)
	}
	payload, ok := got.Payload.(map[string]any)
	if !ok || payload["match_id"] != "m-1" {
		t.Fatalf("unexpected payload: %#v", got.Payload)
	}
}

func TestSubscribeTopicIsolation(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := bus.Subscribe(ctx, MatchTopic("m-1"))
	defer sub.Close()
	time.Sleep(100 * time.Millisecond)

	if err := bus.Publish(ctx, MatchTopic("m-2"), Event{Type: "state-updated"}); err != nil {
		t.Fatalf("Publish m-2: %v", err)
	}
	if err := bus.Publish(ctx, MatchTopic("m-1"), Event{Type: "state-updated"}); err != nil {
		t.Fatalf("Publish m-1: %v", err)
	}

	// Only the m-1 frame may arrive; the m-2 publish must not leak in
	// ahead of it.
	raw := recvFrame(t, sub)
	var got Event
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if got.Type != "state-updated" {
		t.Fatalf("unexpected type %q", got.Type)
	}
	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected extra frame: %s", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscriptionCloseEndsStream(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := bus.Subscribe(ctx, TopicLobby)
	time.Sleep(100 * time.Millisecond)
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected closed channel, got a frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after Close")
	}
}
