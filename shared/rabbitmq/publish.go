package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const contentTypeJSON = "application/json"

const (
	defaultPublishRetries    = 3
	defaultPublishRetryDelay = 100 * time.Millisecond
	defaultBackoffMultiplier = 2.0
)

// backoff yields the wait before each publish retry
type backoff struct {
	retries int
	delay   time.Duration
	mult    float64
}

func newBackoff(cfg *Config) backoff {
	b := backoff{
		retries: cfg.PublishRetries,
		delay:   cfg.PublishRetryDelay,
		mult:    cfg.PublishBackoffMult,
	}
	if b.retries <= 0 {
		b.retries = defaultPublishRetries
	}
	if b.delay <= 0 {
		b.delay = defaultPublishRetryDelay
	}
	if b.mult <= 0 {
		b.mult = defaultBackoffMultiplier
	}
	return b
}

// wait returns the delay after the given failed attempt, counting from 0
func (b backoff) wait(attempt int) time.Duration {
	d := float64(b.delay)
	for range attempt {
		d *= b.mult
	}
	return time.Duration(d)
}

// publish sends one persistent JSON message tagged with its event type
func (c *Client) publish(ctx context.Context, messageID, eventType string, body []byte) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	return c.channel.PublishWithContext(ctx, c.config.ExchangeName, c.config.RoutingKey, false, false,
		amqp.Publishing{
			ContentType:  contentTypeJSON,
			MessageId:    messageID,
			Type:         eventType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
}

// PublishWithRetry publishes an event, retrying with exponential backoff until ctx ends
func (c *Client) PublishWithRetry(ctx context.Context, messageID, eventType string, body []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	policy := newBackoff(c.config)

	var lastErr error
	for attempt := 0; attempt <= policy.retries; attempt++ {
		err := c.publish(ctx, messageID, eventType, body)
		if err == nil {
			c.logger.Debug("Event published",
				slog.String("event_type", eventType),
				slog.String("message_id", messageID),
				slog.Int("attempt", attempt+1),
			)
			return nil
		}
		lastErr = err

		if attempt == policy.retries {
			break
		}

		delay := policy.wait(attempt)
		c.logger.Warn("Failed to publish event, retrying",
			slog.String("event_type", eventType),
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_after", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("publish canceled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed to publish %s after %d attempts: %w", eventType, policy.retries+1, lastErr)
}
