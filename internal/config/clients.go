package config

import (
	"github.com/cuongbtq/pi-work/shared/logger"
	"github.com/cuongbtq/pi-work/shared/postgresql"
	"github.com/cuongbtq/pi-work/shared/rabbitmq"
)

// Logger returns the logger settings, writing to fallbackOutput when none is configured
func (l LoggingConfig) Logger(fallbackOutput string) *logger.Config {
	output := l.Output
	if output == "" {
		output = fallbackOutput
	}
	return &logger.Config{
		Level:        l.Level,
		Format:       l.Format,
		Output:       output,
		EnableSource: l.EnableCaller,
	}
}

// PostgreSQL returns the connection settings for the shared database client
func (d DatabaseConfig) PostgreSQL() *postgresql.Config {
	return &postgresql.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// Broker returns the connection and topology settings for the shared RabbitMQ client
func (r RabbitMQConfig) Broker() *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:               r.Host,
		Port:               r.Port,
		User:               r.User,
		Password:           r.Password,
		VHost:              r.VHost,
		ExchangeName:       r.Exchange.Name,
		ExchangeType:       r.Exchange.Type,
		ExchangeDurable:    r.Exchange.Durable,
		ExchangeAutoDelete: r.Exchange.AutoDelete,
		QueueName:          r.Queue.Name,
		QueueDurable:       r.Queue.Durable,
		QueueAutoDelete:    r.Queue.AutoDelete,
		QueueExclusive:     r.Queue.Exclusive,
		RoutingKey:         r.RoutingKey,
		DeadLetterExchange: r.DeadLetter.Exchange,
		DeadLetterQueue:    r.DeadLetter.Queue,
		RetryAttempts:      r.Connection.RetryAttempts,
		RetryInterval:      r.Connection.RetryInterval,
		Heartbeat:          r.Connection.Heartbeat,
		ConnectionTimeout:  r.Connection.ConnectionTimeout,
		PublishRetries:     r.Publish.RetryAttempts,
		PublishRetryDelay:  r.Publish.RetryInterval,
		PublishBackoffMult: r.Publish.BackoffMultiplier,
		PrefetchCount:      r.Consumer.PrefetchCount,
	}
}
