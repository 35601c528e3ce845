// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can ignore failures without interrupting
// the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/metrics"
	q "github.com/iliyamo/templatehub/internal/queue"
)

// EmailPublisher sends EmailRequested messages to the durable
// notifications.email queue.  Each publish uses its own short-lived
// connection; email volume is low and this keeps no broker state in the
// API process.
type EmailPublisher struct {
	url string
	log logrus.FieldLogger
}

func NewEmailPublisher(url string, log logrus.FieldLogger) *EmailPublisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EmailPublisher{url: url, log: log.WithField("component", "email-publisher")}
}

// PublishEmail marks the message persistent and routes it through the
// default exchange.
func (p *EmailPublisher) PublishEmail(ctx context.Context, event q.EmailRequested) (err error) {
	defer func() { metrics.RecordEmailQueued(event.Kind, err) }()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err = ch.QueueDeclare(
		q.EmailQueueName, // name
		true,             // durable
		false,            // autoDelete
		false,            // exclusive
		false,            // noWait
		nil,              // args
	); err != nil {
		p.log.WithError(err).Warn("rabbitmq queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).Error("marshal email request failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err = ch.PublishWithContext(ctx,
		"",               // default exchange
		q.EmailQueueName, // routing key = queue name
		false,            // mandatory
		false,            // immediate
		pub,
	); err != nil {
		p.log.WithError(err).WithField("kind", event.Kind).Warn("rabbitmq publish failed")
		return err
	}
	return nil
}
