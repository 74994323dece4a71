package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeExecutionSubmitted MessageType = "execution.submitted"
	MessageTypeExecutionEvent     MessageType = "execution.event"
	MessageTypeExecutionFinished  MessageType = "execution.finished"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionSubmittedPayload — payload для сообщения о новом execution.
type ExecutionSubmittedPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	Saga        string    `json:"saga"`
}

// ExternalEventPayload — payload внешнего события для execution в WAITING.
type ExternalEventPayload struct {
	ExecutionID uuid.UUID      `json:"execution_id"`
	EventType   string         `json:"event_type"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// ExecutionFinishedPayload — payload для сообщения о терминальном переходе.
type ExecutionFinishedPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	Saga        string    `json:"saga"`
	Status      string    `json:"status"`
	FailedStep  string    `json:"failed_step,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishExecutionSubmitted публикует событие о новом execution, ожидающем запуска.
// Потребитель: Engine.
func (p *Publisher) PublishExecutionSubmitted(ctx context.Context, executionID uuid.UUID, saga string) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionSubmitted,
		Payload:   ExecutionSubmittedPayload{ExecutionID: executionID, Saga: saga},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeySubmitted, msg)
}

// PublishExternalEvent публикует внешнее событие для возобновления execution.
// Потребитель: Engine.
func (p *Publisher) PublishExternalEvent(ctx context.Context, payload ExternalEventPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionEvent,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeEvents, RoutingKeyIncoming, msg)
}

// PublishExecutionFinished публикует событие о достижении терминального статуса.
// Потребители: внешние системы, подписанные на исходы саг.
func (p *Publisher) PublishExecutionFinished(ctx context.Context, payload ExecutionFinishedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionFinished,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeyFinished, msg)
}

// PublishJSON публикует произвольный JSON payload.
func (p *Publisher) PublishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, exchange, routingKey, msg)
}
