package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// declareTopology declares the events exchange and queue, plus the
// dead-letter exchange and queue when they are configured.
// The dead-letter pair is declared first so the main queue can point at it.
func declareTopology(ch *amqp.Channel, cfg *Config) error {
	if cfg.DeadLetterExchange != "" {
		if err := ch.ExchangeDeclare(cfg.DeadLetterExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
		}
		if cfg.DeadLetterQueue != "" {
			if _, err := ch.QueueDeclare(cfg.DeadLetterQueue, true, false, false, false, nil); err != nil {
				return fmt.Errorf("failed to declare dead-letter queue: %w", err)
			}
			if err := ch.QueueBind(cfg.DeadLetterQueue, "", cfg.DeadLetterExchange, false, nil); err != nil {
				return fmt.Errorf("failed to bind dead-letter queue: %w", err)
			}
		}
	}

	err := ch.ExchangeDeclare(
		cfg.ExchangeName,
		exchangeType(cfg),
		cfg.ExchangeDurable,
		cfg.ExchangeAutoDelete,
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.QueueName,
		cfg.QueueDurable,
		cfg.QueueAutoDelete,
		cfg.QueueExclusive,
		false, // no-wait
		queueArguments(cfg),
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

func exchangeType(cfg *Config) string {
	if cfg.ExchangeType == "" {
		return amqp.ExchangeDirect
	}
	return cfg.ExchangeType
}

// queueArguments routes rejected deliveries of the events queue to the dead-letter exchange
func queueArguments(cfg *Config) amqp.Table {
	if cfg.DeadLetterExchange == "" {
		return nil
	}
	return amqp.Table{"x-dead-letter-exchange": cfg.DeadLetterExchange}
}
