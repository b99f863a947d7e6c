package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisStreamNotifierAppendsEvent(t *testing.T) {
	srv := miniredis.RunT(t)
	n, err := NewRedisStreamNotifier(srv.Addr(), "", "test:events", 100)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	defer n.Close()

	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	event := Event{ID: "e1", Type: EventPostPosted, Workspace: "ws", PostID: "p1", Platform: "LinkedIn", At: at}
	if err := n.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()
	msgs, err := client.XRange(context.Background(), "test:events", "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Values["type"] != EventPostPosted || msgs[0].Values["post_id"] != "p1" {
		t.Fatalf("unexpected values: %+v", msgs[0].Values)
	}
	var decoded Event
	if err := json.Unmarshal([]byte(msgs[0].Values["payload"].(string)), &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded != event {
		t.Fatalf("payload = %+v, want %+v", decoded, event)
	}
}

func TestRedisStreamNotifierValidation(t *testing.T) {
	if _, err := NewRedisStreamNotifier("", "", "s", 0); err == nil {
		t.Fatalf("expected error for empty addr")
	}
	if _, err := NewRedisStreamNotifier("localhost:6379", "", " ", 0); err == nil {
		t.Fatalf("expected error for empty stream")
	}
}

func TestAMQPNotifierRequiresURL(t *testing.T) {
	if _, err := NewAMQPNotifier("  ", ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = Nop{}
	if err := n.Publish(context.Background(), Event{Type: EventPostPosted}); err != nil {
		t.Fatalf("nop publish: %v", err)
	}
}
