package ports

import (
	"context"

	"github.com/ark-network/noted/internal/core/domain"
)

// EventSource is a best-effort ordered stream of chain events. Delivery is
// at-least-once, the channel is closed when the source is exhausted.
type EventSource interface {
	Events(ctx context.Context) (<-chan domain.SyncEvent, error)
	Close() error
}
