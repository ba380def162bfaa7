package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"github.com/nats-io/nats.go"
)

// ClickPublisher publishes click events to NATS JetStream.
type ClickPublisher struct {
	js nats.JetStreamContext
}

// NewClickPublisher creates a new click event publisher.
func NewClickPublisher(js nats.JetStreamContext) *ClickPublisher {
	return &ClickPublisher{js: js}
}

// Publish emits one click event for a granted access.
func (p *ClickPublisher) Publish(shortID, ip, userAgent string) error {
	event := model.ClickEvent{
		ID:        uuid.New().String(),
		ShortID:   shortID,
		IP:        ip,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ClickStreamSubject, data)
	return err
}
