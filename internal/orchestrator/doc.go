// Package orchestrator — ядро оркестрации саг.
//
// Orchestrator отвечает за:
//   - Приём новых executions (Submit, с ключом идемпотентности)
//   - Пошаговый прогон саги: вызов Runner, разбор Outcome
//     (continue / suspend / jump / terminate)
//   - Запуск компенсации при невосстановимом падении шага
//   - Возобновление WAITING executions внешним событием (Resume Gateway)
//   - Кооперативную отмену на границе шагов (Cancel)
//
// Каждый переход execution персистится через CAS по версии записи:
// в каждый момент времени запись двигает не более одного исполнителя,
// проигравший CAS получает ошибку и перечитывает состояние.
package orchestrator
