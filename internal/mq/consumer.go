package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает одно сообщение. Ошибка решает судьбу доставки,
// см. Settle.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — разобранное сообщение вместе с исходной доставкой.
type Delivery struct {
	Message Message
	Raw     amqp.Delivery
}

// Settlement — итог доставки.
type Settlement int

const (
	// Ack — сообщение обработано (в том числе execution завершился failed).
	Ack Settlement = iota
	// Requeue — временная ошибка, сообщение вернётся в очередь один раз.
	Requeue
	// DeadLetter — повтор не поможет, сообщение уходит в dlq.executions.
	DeadLetter
)

func (s Settlement) String() string {
	switch s {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	default:
		return "dead_letter"
	}
}

// Settle выбирает итог доставки по ошибке обработчика.
//
// Битый payload, неизвестный тип и отклонённый запрос (неизвестный flow,
// неверный контекст) сразу уходят в DLQ. Прочие ошибки дают одну
// повторную доставку, после которой сообщение тоже уходит в DLQ.
func Settle(err error, redelivered bool) Settlement {
	switch {
	case err == nil:
		return Ack
	case errors.Is(err, ErrUnknownMessageType),
		errors.Is(err, ErrBadPayload),
		errors.Is(err, ErrRejected):
		return DeadLetter
	case redelivered:
		return DeadLetter
	default:
		return Requeue
	}
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Prefetch — сколько неподтверждённых сообщений держит consumer (default: 1).
	Prefetch int

	Logger *slog.Logger
}

// Consumer читает очередь на собственном канале и переоткрывает его
// после восстановления соединения.
type Consumer struct {
	conn     *Connection
	queue    Queue
	handler  Handler
	prefetch int
	tag      string
	logger   *slog.Logger
}

// NewConsumer создаёт Consumer. Тег consumer уникален для процесса.
func NewConsumer(conn *Connection, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tag := "flowmanager-" + uuid.NewString()[:8]

	return &Consumer{
		conn:     conn,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
		tag:      tag,
		logger:   logger.With("queue", cfg.Queue, "consumer_tag", tag),
	}
}

// Run потребляет очередь до отмены ctx или закрытия соединения.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		// Сигнал берётся до открытия канала, чтобы не пропустить reconnect
		reconnected := c.conn.Reconnected()

		err := c.consumeOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consumer interrupted, waiting for reconnect", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.Done():
			return ErrConnectionClosed
		case <-reconnected:
		}
	}
}

// consumeOnce открывает канал и обрабатывает доставки, пока канал жив.
func (c *Consumer) consumeOnce(ctx context.Context) error {
	ch, err := c.conn.OpenChannel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx,
		string(c.queue),
		c.tag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info("consumer started", "prefetch", c.prefetch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return ErrNoChannel
			}
			c.handle(ctx, raw)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	d, err := decodeDelivery(raw)
	if err == nil {
		err = c.handler(ctx, d)
	}

	settlement := Settle(err, raw.Redelivered)
	if err != nil {
		c.logger.Warn("message not processed",
			"message_id", raw.MessageId,
			"type", raw.Type,
			"redelivered", raw.Redelivered,
			"settlement", settlement,
			"error", err,
		)
	}

	var settleErr error
	switch settlement {
	case Ack:
		settleErr = raw.Ack(false)
	case Requeue:
		settleErr = raw.Nack(false, true)
	default:
		settleErr = raw.Nack(false, false)
	}
	if settleErr != nil {
		c.logger.Error("failed to settle delivery", "message_id", raw.MessageId, "error", settleErr)
	}
}

// decodeDelivery разбирает конверт Message. Тип из свойств AMQP
// должен совпадать с типом в конверте.
func decodeDelivery(raw amqp.Delivery) (*Delivery, error) {
	if raw.ContentType != "" {
		media, _, err := mime.ParseMediaType(raw.ContentType)
		if err != nil || media != contentTypeJSON {
			return nil, fmt.Errorf("%w: content type %q", ErrBadPayload, raw.ContentType)
		}
	}

	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if raw.Type != "" && MessageType(raw.Type) != msg.Type {
		return nil, fmt.Errorf("%w: amqp type %q, envelope type %q", ErrBadPayload, raw.Type, msg.Type)
	}

	return &Delivery{Message: msg, Raw: raw}, nil
}

// ParsePayload разбирает payload сообщения в T.
// Ошибки оборачивают ErrBadPayload.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return result, nil
}

// Router выбирает обработчик по типу сообщения.
type Router struct {
	handlers map[MessageType]Handler
}

// NewRouter создаёт пустой Router.
func NewRouter() *Router {
	return &Router{handlers: make(map[MessageType]Handler)}
}

// Handle регистрирует обработчик для типа сообщения.
func (r *Router) Handle(msgType MessageType, h Handler) *Router {
	r.handlers[msgType] = h
	return r
}

// Dispatch — Handler, передающий сообщение зарегистрированному обработчику.
func (r *Router) Dispatch(ctx context.Context, d *Delivery) error {
	h, ok := r.handlers[d.Message.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, d.Message.Type)
	}
	return h(ctx, d)
}
