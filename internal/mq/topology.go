package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeExecutions Exchange = "orkestra.executions"
	ExchangeEvents     Exchange = "orkestra.events"
	ExchangeDLQ        Exchange = "orkestra.dlq"
)

// Queues.
const (
	// QueueExecutionsSubmitted — новые executions. Потребитель: engine.
	QueueExecutionsSubmitted Queue = "executions.submitted"

	// QueueExecutionEvents — внешние события для WAITING executions.
	// Потребитель: engine (Resume Gateway). С DLQ: событие, которое
	// не удалось обработать, уходит на ручной разбор, а не теряется.
	QueueExecutionEvents Queue = "events.incoming"

	// QueueExecutionsFinished — терминальные переходы. Потребители:
	// внешние системы (алертинг на COMPENSATION_FAILED).
	QueueExecutionsFinished Queue = "executions.finished"

	// QueueDLQEvents — dead letter queue для событий.
	QueueDLQEvents Queue = "dlq.events"
)

// Routing keys.
const (
	RoutingKeySubmitted RoutingKey = "submitted"
	RoutingKeyIncoming  RoutingKey = "incoming"
	RoutingKeyFinished  RoutingKey = "finished"
	RoutingKeyDLQEvents RoutingKey = "events"
)

// SetupTopology объявляет exchanges, queues и bindings.
// Идемпотентно: повторный вызов на готовой топологии безопасен.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []Exchange{ExchangeExecutions, ExchangeEvents, ExchangeDLQ}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex), // name
			"direct",   // type
			true,       // durable
			false,      // auto-deleted
			false,      // internal
			false,      // no-wait
			nil,        // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQEvents),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueExecutionsSubmitted, nil},
		{QueueExecutionEvents, dlqArgs},
		{QueueExecutionsFinished, nil},
		{QueueDLQEvents, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueExecutionsSubmitted, RoutingKeySubmitted, ExchangeExecutions},
		{QueueExecutionsFinished, RoutingKeyFinished, ExchangeExecutions},
		{QueueExecutionEvents, RoutingKeyIncoming, ExchangeEvents},
		{QueueDLQEvents, RoutingKeyDLQEvents, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
