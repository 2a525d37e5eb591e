package publisher

import (
	"context"

	"estefy/inmoworker/internal/pipeline"
)

// Publisher pushes freshly persisted listings to downstream consumers.
type Publisher interface {
	// Publish sends the listings of one crawl round for a source
	Publish(ctx context.Context, source string, listings []*pipeline.Listing) error
	// Close releases the underlying connection
	Close() error
}
