// Package engine — сервис, прогоняющий executions через оркестратор.
//
// Engine отвечает за:
//   - Получение новых executions из очереди RabbitMQ (event-driven)
//   - Периодическую проверку RUNNING/COMPENSATING записей в БД
//     (polling fallback + восстановление после рестарта)
//   - Доставку внешних событий в WAITING executions (Resume Gateway)
//   - Трекинг активных executions, чтобы одна запись не прогонялась
//     двумя горутинами одного процесса
//
// Конкуренцию между процессами разруливает не engine, а CAS по версии
// записи в хранилище.
package engine
