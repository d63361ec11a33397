package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultReconnectDelay    = time.Second
	defaultMaxReconnectDelay = 30 * time.Second
)

// ConnectionConfig — параметры подключения к RabbitMQ.
type ConnectionConfig struct {
	URL string

	// ReconnectDelay — первая пауза перед повторным подключением (default: 1s).
	// Каждая неудачная попытка удваивает паузу до MaxReconnectDelay (default: 30s).
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	Logger *slog.Logger
}

// Connection держит AMQP соединение flowmanager.
//
// Запросы на запуск и события execution.finished публикуются через
// отдельный канал в режиме подтверждений. Consumer открывает собственный
// канал через OpenChannel. После разрыва соединение восстанавливается
// в фоне; все ожидающие Reconnected получают сигнал одновременно.
type Connection struct {
	cfg    ConnectionConfig
	logger *slog.Logger

	mu          sync.RWMutex
	conn        *amqp.Connection
	publish     *amqp.Channel
	reconnected chan struct{}
	closed      bool

	done chan struct{}
}

// Dial подключается к RabbitMQ и запускает наблюдение за соединением.
func Dial(cfg ConnectionConfig) (*Connection, error) {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = max(defaultMaxReconnectDelay, cfg.ReconnectDelay)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		cfg:         cfg,
		logger:      logger.With("component", "mq"),
		reconnected: make(chan struct{}),
		done:        make(chan struct{}),
	}

	conn, err := c.dial()
	if err != nil {
		return nil, err
	}

	go c.watch(conn)

	return c, nil
}

// dial открывает соединение и publish-канал в режиме подтверждений.
func (c *Connection) dial() (*amqp.Connection, error) {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.publish = ch
	c.mu.Unlock()

	c.logger.Info("connected to rabbitmq")
	return conn, nil
}

// watch ждёт закрытия соединения и восстанавливает его до вызова Close.
func (c *Connection) watch(conn *amqp.Connection) {
	for {
		closeErr := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.done:
			return
		case err := <-closeErr:
			c.logger.Warn("rabbitmq connection lost", "error", err)
		}

		next, ok := c.redial()
		if !ok {
			return
		}
		conn = next
	}
}

// redial повторяет подключение с растущей паузой.
// Возвращает false, если соединение закрыто вызовом Close.
func (c *Connection) redial() (*amqp.Connection, bool) {
	delay := c.cfg.ReconnectDelay

	for attempt := 1; ; attempt++ {
		select {
		case <-c.done:
			return nil, false
		case <-time.After(delay):
		}

		conn, err := c.dial()
		if err != nil {
			c.logger.Warn("reconnect failed", "attempt", attempt, "next_delay", delay, "error", err)
			delay = min(delay*2, c.cfg.MaxReconnectDelay)
			continue
		}

		c.mu.Lock()
		close(c.reconnected)
		c.reconnected = make(chan struct{})
		c.mu.Unlock()

		c.logger.Info("rabbitmq connection restored", "attempts", attempt)
		return conn, true
	}
}

// Reconnected возвращает канал, который закроется при следующем
// восстановлении соединения.
func (c *Connection) Reconnected() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnected
}

// Done закрывается вызовом Close.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// OpenChannel открывает новый канал на текущем соединении.
// Закрывать канал должен вызывающий.
func (c *Connection) OpenChannel() (*amqp.Channel, error) {
	c.mu.RLock()
	conn, closed := c.conn, c.closed
	c.mu.RUnlock()

	if closed {
		return nil, ErrConnectionClosed
	}
	if conn == nil || conn.IsClosed() {
		return nil, ErrNoChannel
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// WithPublishChannel выполняет fn с publish-каналом.
// Доступ к каналу сериализован: подтверждения приходят по порядку публикаций.
// Возвращает ErrConnectionClosed после Close и ErrNoChannel, пока идёт переподключение.
func (c *Connection) WithPublishChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	if c.publish == nil || c.publish.IsClosed() {
		return ErrNoChannel
	}

	return fn(c.publish)
}

// Connected сообщает, открыто ли соединение сейчас.
func (c *Connection) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.conn != nil && !c.conn.IsClosed()
}

// Close закрывает publish-канал и соединение. Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	var errs []error
	if c.publish != nil && !c.publish.IsClosed() {
		if err := c.publish.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publish channel: %w", err))
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	c.logger.Info("rabbitmq connection closed")
	return errors.Join(errs...)
}
