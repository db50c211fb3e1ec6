package notify

import (
	"context"

	"github.com/tavolo/reservations/pkg/logger"
)

// DevDispatcher logs events instead of delivering them. Used when neither a
// webhook URL nor a NATS URL is configured.
type DevDispatcher struct{}

func NewDevDispatcher() *DevDispatcher { return &DevDispatcher{} }

func (d *DevDispatcher) Emit(ctx context.Context, event Event) error {
	logger.InfoContext(ctx, "notification event (dev mode)",
		"type", event.Type,
		"restaurant_id", event.RestaurantID,
		"data", event.Data,
	)
	return nil
}

var _ Dispatcher = (*DevDispatcher)(nil)
