package worker

import (
	"context"
)

// Worker is a long-running background task with an explicit stop.
type Worker interface {
	// Start runs the worker until Stop is called or the context ends.
	Start(ctx context.Context) error

	// Stop signals the worker to finish.
	Stop() error

	// Name identifies the worker in logs.
	Name() string
}
