// Package events publishes meme lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/timmy/memegen/internal/domain"
)

// Type names a lifecycle event.
type Type string

const (
	TypeMemeCreated Type = "meme.created"
	TypeMemeDeleted Type = "meme.deleted"
)

// Event is the message body published for a lifecycle change.
type Event struct {
	Type       Type      `json:"type"`
	MemeID     string    `json:"memeId"`
	ImageURL   string    `json:"imageUrl"`
	ObjectURL  string    `json:"objectUrl,omitempty"` // mirrored copy, when there is one
	Captions   []string  `json:"captions,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewMemeEvent builds an event describing m.
func NewMemeEvent(t Type, m *domain.Meme, at time.Time) Event {
	ev := Event{Type: t, MemeID: m.ID, ImageURL: m.ImageURL, OccurredAt: at.UTC()}
	if t == TypeMemeCreated {
		ev.Captions = append([]string(nil), m.Captions...)
	}
	return ev
}

// Encode returns the JSON wire form.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Delivery is best effort: callers log failures
// and never fail the originating request because of them.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }
