package repository

import (
	"context"

	"github.com/place-sync-service/internal/domain"
)

// FeedClient is the network boundary to the external feed endpoint.
type FeedClient interface {
	// Ping checks that the endpoint is reachable.
	Ping(ctx context.Context) error

	// Fetch retrieves the raw feed payload for a source fetch id.
	Fetch(ctx context.Context, fetchID string) (*domain.FeedPayload, error)
}
