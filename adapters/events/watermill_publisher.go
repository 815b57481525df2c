package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/midnight-labs/pincade/ports"
)

// SessionEvent is the payload published on session lifecycle changes
type SessionEvent struct {
	Kind    string `json:"kind"` // "logout" or "breach"
	UserID  string `json:"user_id"`
	TokenID string `json:"token_id,omitempty"`
	Revoked int    `json:"revoked,omitempty"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "pincade.session",
	}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, userID string, tokenID string) error {
	return p.publish(SessionEvent{
		Kind:    "logout",
		UserID:  userID,
		TokenID: tokenID,
	})
}

// PublishBreach publishes a breach event after a full revocation
func (p *WatermillPublisher) PublishBreach(ctx context.Context, userID string, revoked int) error {
	return p.publish(SessionEvent{
		Kind:    "breach",
		UserID:  userID,
		Revoked: revoked,
	})
}

func (p *WatermillPublisher) publish(event SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
