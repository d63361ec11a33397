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
	MessageTypeExecutionRequested MessageType = "execution.requested"
	MessageTypeExecutionFinished  MessageType = "execution.finished"
)

const contentTypeJSON = "application/json"

// Message — конверт сообщения flowmanager.
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

// NewMessage создаёт сообщение с новым ID и текущим временем.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ExecutionRequestedPayload — запрос на асинхронный запуск flow.
type ExecutionRequestedPayload struct {
	FlowID  string         `json:"flow_id"`
	Context map[string]any `json:"context,omitempty"`
}

// ExecutionFinishedPayload — итог выполнения flow.
type ExecutionFinishedPayload struct {
	ExecutionID string    `json:"execution_id"`
	FlowID      string    `json:"flow_id"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	TaskOrder   []string  `json:"task_order"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	DurationMs  int64     `json:"duration_ms"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение и ждёт подтверждения брокера.
// Отказ брокера принять сообщение — ErrNotConfirmed.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithPublishChannel(ctx, func(ch *amqp.Channel) error {
		confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  contentTypeJSON,
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish %s to %s: %w", msg.Type, exchange, err)
		}

		acked, err := confirm.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("wait confirm for %s: %w", msg.ID, err)
		}
		if !acked {
			return fmt.Errorf("%w: %s %s", ErrNotConfirmed, msg.Type, msg.ID)
		}

		p.logger.Debug("message confirmed",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishExecutionRequested ставит flow в очередь на асинхронный запуск.
// Возвращает ID сообщения.
func (p *Publisher) PublishExecutionRequested(ctx context.Context, payload ExecutionRequestedPayload) (string, error) {
	msg := NewMessage(MessageTypeExecutionRequested, payload)
	if err := p.Publish(ctx, ExchangeExecutions, RoutingKeyRequested, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// PublishExecutionFinished публикует событие о завершении выполнения.
func (p *Publisher) PublishExecutionFinished(ctx context.Context, payload ExecutionFinishedPayload) error {
	return p.Publish(ctx, ExchangeExecutions, RoutingKeyFinished, NewMessage(MessageTypeExecutionFinished, payload))
}
