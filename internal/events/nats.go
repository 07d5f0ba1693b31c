package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"canteen/internal/logger"
)

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("canteen-publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event OrderEvent) error {
	body, err := event.Encode()
	if err != nil {
		return err
	}
	return p.conn.Publish(event.Type, body)
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// ConsumeNATS subscribes to every order subject and blocks until ctx is
// cancelled.
func ConsumeNATS(ctx context.Context, url string, sink *LogSink) error {
	conn, err := nats.Connect(url, nats.Name("canteen-consumer"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer conn.Close()

	for _, subject := range Subjects {
		_, err := conn.Subscribe(subject, func(msg *nats.Msg) {
			if err := sink.Handle(msg.Data); err != nil {
				logger.For("events").WithError(err).Warn("order consumer: handle message failed")
			}
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}
	<-ctx.Done()
	return nil
}
