// Package mq — инфраструктура RabbitMQ для событий оркестрации.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий
//   - consumer.go   — потребление событий
//
// Типы сообщений:
//   - execution.submitted — новый execution принят и ждёт выполнения
//   - execution.event     — внешнее событие для WAITING execution
//   - execution.finished  — execution достиг терминального статуса
//
// Exchanges:
//   - orkestra.executions — жизненный цикл executions
//   - orkestra.events     — входящие внешние события
//   - orkestra.dlq        — dead letter queue
//
// MQ — транспорт доставки, не источник истины: вся истина в хранилище,
// engine подхватывает записи polling'ом даже при недоступном RabbitMQ.
package mq
