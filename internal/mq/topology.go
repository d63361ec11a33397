package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeExecutions Exchange = "flowmanager.executions"
	ExchangeDLQ        Exchange = "flowmanager.dlq"
)

// Queues — имена очередей.
const (
	QueueExecutionsRequested Queue = "executions.requested"
	QueueExecutionsFinished  Queue = "executions.finished"
	QueueDLQExecutions       Queue = "dlq.executions"
)

// Routing keys совпадают с типами сообщений.
const (
	RoutingKeyRequested     RoutingKey = "execution.requested"
	RoutingKeyFinished      RoutingKey = "execution.finished"
	RoutingKeyDLQExecutions RoutingKey = "executions"
)

// SetupTopology объявляет обменники, очереди и привязки.
// Операция идемпотентна: повторное объявление с теми же параметрами
// RabbitMQ принимает без ошибки.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithPublishChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeExecutions, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQExecutions),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// Запросы на запуск: битые сообщения уходят в DLQ
		{QueueExecutionsRequested, dlqArgs},

		// События завершения для внешних подписчиков
		{QueueExecutionsFinished, nil},

		{QueueDLQExecutions, nil},
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

func bindQueues(ch *amqp.Channel) error {
	for _, b := range Bindings() {
		err := ch.QueueBind(
			string(b.Queue),      // queue name
			string(b.RoutingKey), // routing key
			string(b.Exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.Queue, b.Exchange, err)
		}
	}

	return nil
}

// Binding — привязка очереди к обменнику.
type Binding struct {
	Queue      Queue
	RoutingKey RoutingKey
	Exchange   Exchange
}

// Bindings возвращает все привязки топологии.
func Bindings() []Binding {
	return []Binding{
		{QueueExecutionsRequested, RoutingKeyRequested, ExchangeExecutions},
		{QueueExecutionsFinished, RoutingKeyFinished, ExchangeExecutions},
		{QueueDLQExecutions, RoutingKeyDLQExecutions, ExchangeDLQ},
	}
}
