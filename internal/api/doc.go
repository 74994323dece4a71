// Package api — HTTP API для управления executions.
//
// Endpoints:
//   - Sagas: список зарегистрированных саг и их шаги
//   - Executions: запуск, просмотр, отмена, доставка внешних событий
//
// API не двигает executions сам: Submit создаёт запись и отдаёт её
// engine'у, событие уходит в очередь (или напрямую в Resume Gateway в
// polling-only режиме).
package api
