// Package runner выполняет отдельные шаги саги.
//
// Runner отвечает за:
//   - Запуск forward- и компенсирующих действий под таймаутом шага
//   - Retry с backoff по RetryPolicy шага
//   - Единообразную классификацию ошибок действия
//
// Runner не персистит ничего — это зона ответственности оркестратора.
// Благодаря этому runner тестируется отдельно, на фейковых шагах и
// фейковых часах.
package runner
