package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSDispatcher publishes events on the cluster bus for deployments where
// the workflow engine consumes NATS subjects instead of webhooks. Subject is
// reservation.<type>.
type NATSDispatcher struct {
	conn *nats.Conn
}

func NewNATSDispatcher(url string) (*NATSDispatcher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSDispatcher{conn: conn}, nil
}

func (d *NATSDispatcher) Emit(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return d.conn.Publish("reservation."+event.Type, payload)
}

func (d *NATSDispatcher) Close() error {
	d.conn.Close()
	return nil
}

var _ Dispatcher = (*NATSDispatcher)(nil)
