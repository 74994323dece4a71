// Package store — персистенция execution-записей.
//
// Store — единственный разделяемый мутабельный ресурс системы.
// Каждая запись проходит через Save с ожидаемой версией (CAS):
// конкурирующие исполнители одной записи разрешаются проверкой
// версии, глобальные блокировки не нужны.
//
// Реализации:
//   - ExecutionRepo — Postgres через pgx (production)
//   - MemoryStore — in-memory, для тестов ядра
package store
