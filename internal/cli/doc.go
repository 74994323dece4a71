// Package cli реализует инструмент командной строки Orkestra.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Orkestra API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для запуска саг, наблюдения за executions,
// доставки внешних событий и отмены.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Orkestra API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	sagas, err := client.ListSagas()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: orkestra execution list --json | jq .
//
// # Commands
//
// Cobra-команды организованы по ресурсам:
//   - saga: list, show
//   - execution: list, start, show, steps, event, cancel
//
// Каждая группа создаётся через фабричную функцию (NewSagaCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
