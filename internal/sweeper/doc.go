// Package sweeper — фоновый сервис обслуживания execution-записей.
//
// Sweeper отвечает за:
//   - Доставку события timeout в WAITING executions с истёкшим
//     дедлайном ожидания (шаг сам решает, что делать с таймаутом)
//   - Удаление старых терминальных записей по cron-расписанию
//     (retention-окно аудита)
//
// Sweeper не двигает записи сам: всё проходит через Resume Gateway
// оркестратора, с тем же CAS-протоколом, что и обычные события.
package sweeper
