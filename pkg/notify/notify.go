// Package notify publishes post lifecycle events to a broker so other
// systems can follow what the dashboard deploys.
package notify

import (
	"context"
	"encoding/json"
	"time"
)

const EventPostPosted = "post.posted"

// Event describes one post lifecycle change.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Workspace string    `json:"workspace"`
	PostID    string    `json:"postId"`
	Platform  string    `json:"platform"`
	At        time.Time `json:"at"`
}

// Notifier publishes events. Implementations must be safe for concurrent use.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

// Publish implements Notifier.
func (Nop) Publish(context.Context, Event) error { return nil }

func encode(event Event) ([]byte, error) {
	return json.Marshal(event)
}
