package repository

import (
	"context"

	"github.com/place-sync-service/internal/domain"
)

// StreamRepository is the redis streams boundary used for sync requests.
type StreamRepository interface {
	// CreateConsumerGroup creates the consumer group for a stream.
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// ConsumeStream reads messages from the stream through a consumer group.
	ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error)

	// AckMessage acknowledges a processed message.
	AckMessage(ctx context.Context, stream, group, messageID string) error

	// PublishToStream publishes a message to the stream.
	PublishToStream(ctx context.Context, stream string, data interface{}) error
}
