// Package mq связывает flowmanager с RabbitMQ.
//
// connection.go держит соединение: publish-канал в режиме подтверждений
// и восстановление после разрыва. topology.go объявляет обменники
// и очереди, publisher.go публикует запросы на запуск и события
// завершения, consumer.go читает очередь запросов и решает судьбу
// каждой доставки через Settle.
//
// Сообщения:
//   - execution.requested — запрос на асинхронный запуск flow
//     (executions.requested, отказы уходят в dlq.executions)
//   - execution.finished — итог execution для внешних подписчиков
package mq
