package ports

import "context"

// EventPublisher publishes session events to notify other instances
type EventPublisher interface {
	PublishLogout(ctx context.Context, userID string, tokenID string) error
	PublishBreach(ctx context.Context, userID string, revoked int) error
}
