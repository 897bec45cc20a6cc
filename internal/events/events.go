// Package events publishes committed pings to NATS for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

// PingSent is the payload published after a ping commits.
type PingSent struct {
	EventID        string    `json:"eventId"`
	PlaceID        string    `json:"placeId"`
	DayKey         string    `json:"dayKey"`
	SenderUserID   string    `json:"senderUserId"`
	RecipientCount int       `json:"recipientCount"`
	Status         string    `json:"status"`
	SentAt         time.Time `json:"sentAt"`
}

// Publisher sends PingSent messages.
type Publisher interface {
	PublishPingSent(ctx context.Context, ev PingSent) error
}

// NATSPublisher wraps a core NATS connection.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

func (p *NATSPublisher) PublishPingSent(ctx context.Context, ev PingSent) error {
	if p == nil {
		return errors.New("nil publisher")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

// Close drains the connection, falling back to a hard close.
func (p *NATSPublisher) Close() {
	if p == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
