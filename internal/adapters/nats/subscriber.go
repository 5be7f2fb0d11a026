package natsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.SceneWatcher using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
}

// NewSubscriber connects to NATS for reading scenes published under subject.
func NewSubscriber(url, subject string) (*Subscriber, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, subject: subject}, nil
}

// WatchScenes delivers the latest scene of viewID and every later one until
// ctx is done or stop is called.
func (s *Subscriber) WatchScenes(ctx context.Context, viewID string, handler func(data []byte)) (func(), error) {
	subject := SceneSubject(s.subject, viewID)
	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	},
		nats.OrderedConsumer(),
		nats.DeliverLastPerSubject(),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	var once sync.Once
	done := make(chan struct{})
	stop := func() {
		once.Do(func() {
			close(done)
			if err := sub.Unsubscribe(); err != nil {
				slog.Debug("scene unsubscribe", "view", viewID, "error", err)
			}
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return stop, nil
}

// Conn exposes the underlying connection for health checks.
func (s *Subscriber) Conn() *nats.Conn {
	return s.conn
}

// Close drains the connection.
func (s *Subscriber) Close() {
	_ = s.conn.Drain()
}
