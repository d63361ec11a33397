package mq

import "errors"

// Ошибки очереди сообщений.
var (
	// ErrNoChannel — AMQP канал недоступен (соединение ещё не восстановлено).
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrConnectionClosed — соединение закрыто вызовом Close.
	ErrConnectionClosed = errors.New("amqp connection closed")

	// ErrNotConfirmed — брокер не подтвердил публикацию (basic.nack).
	ErrNotConfirmed = errors.New("publish not confirmed by broker")

	// ErrUnknownMessageType — для типа сообщения нет обработчика.
	ErrUnknownMessageType = errors.New("unknown message type")
)

// ErrBadPayload — payload сообщения не соответствует ожидаемой структуре.
var ErrBadPayload = errors.New("bad message payload")

// ErrRejected — обработчик окончательно отклонил сообщение.
// Такое сообщение не возвращается в очередь.
var ErrRejected = errors.New("message rejected")
