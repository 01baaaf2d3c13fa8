package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/library-catalog/internal/queue"
)

// Publisher delivers activity events. Implementations log failures and
// never return them: a lost audit line must not fail the request.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent)
}

// NopPublisher drops every event. Used when AMQP is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.ActivityEvent) {}

// AMQPPublisher sends each event as a persistent message to the activity
// queue over a short-lived connection.
type AMQPPublisher struct {
	URL string
	Log *slog.Logger
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Log: log}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.ActivityEvent) {
	if err := p.publish(ctx, ev); err != nil {
		p.Log.Warn("activity publish failed", "type", ev.Type, "error", err)
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, ev queue.ActivityEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.ActivityQueue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",                  // default exchange
		queue.ActivityQueue, // routing key = queue name
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
