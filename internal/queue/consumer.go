package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/email"
)

// Renderer turns an email request into a message.
type Renderer interface {
	Render(kind string, raw json.RawMessage) (*email.Message, error)
}

// EmailConsumer renders queued email requests and appends them to
// <dir>/outbox.log.  Dispatch to a mail provider is left to whatever tails
// the outbox.
type EmailConsumer struct {
	url      string
	renderer Renderer
	dir      string
	log      logrus.FieldLogger

	mu sync.Mutex // serialises outbox writes
}

func NewEmailConsumer(url string, renderer Renderer, outboxDir string, log logrus.FieldLogger) *EmailConsumer {
	if outboxDir == "" {
		outboxDir = "logs"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EmailConsumer{url: url, renderer: renderer, dir: outboxDir, log: log.WithField("component", "email-consumer")}
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is cancelled.  Broker failures are retried with exponential backoff so
// the API keeps serving while the broker is down.
func (c *EmailConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).WithField("retry_in", backoff.String()).Warn("dial broker")
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *EmailConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS")
	}
	if _, err := ch.QueueDeclare(EmailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(EmailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.WithField("queue", EmailQueueName).Info("consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.log.WithError(err).Error("handle email request")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle renders one message body and appends it to the outbox.
func (c *EmailConsumer) Handle(body []byte) error {
	var req EmailRequested
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if req.To == "" {
		return errors.New("email request without recipient")
	}
	msg, err := c.renderer.Render(req.Kind, req.Data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir outbox: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, "outbox.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	defer f.Close()

	entry := fmt.Sprintf("=== %s | kind=%s | user_id=%d | to=%s\nSubject: %s\n\n%s\n\n",
		req.RequestedAt.UTC().Format(time.RFC3339), req.Kind, req.UserID, req.To, msg.Subject, msg.HTML)
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	c.log.WithFields(logrus.Fields{"kind": req.Kind, "user_id": req.UserID}).Info("email rendered to outbox")
	return nil
}
