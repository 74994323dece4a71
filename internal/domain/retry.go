package domain

import "time"

// Backoff — форма задержки между попытками.
type Backoff string

const (
	// BackoffFixed — постоянная задержка InitialDelay.
	BackoffFixed Backoff = "fixed"

	// BackoffExponential — задержка удваивается с каждой попыткой,
	// но не превышает MaxDelay.
	BackoffExponential Backoff = "exponential"
)

// RetryPolicy — политика повторов действия шага.
//
// Применяется к forward-ошибкам, классифицированным как retryable.
// Для компенсации используется та же политика, но исчерпание попыток
// там означает COMPENSATION_FAILED, а не запуск отката.
type RetryPolicy struct {
	// MaxAttempts — максимальное число попыток (включая первую).
	MaxAttempts int `json:"max_attempts"`

	// Backoff — форма задержки: fixed или exponential.
	Backoff Backoff `json:"backoff,omitempty"`

	// InitialDelay — начальная задержка перед повтором.
	InitialDelay time.Duration `json:"initial_delay,omitempty"`

	// MaxDelay — потолок задержки для exponential.
	MaxDelay time.Duration `json:"max_delay,omitempty"`
}

// Attempts возвращает бюджет попыток. Nil-политика — одна попытка.
func (p *RetryPolicy) Attempts() int {
	if p == nil || p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Delay вычисляет задержку перед попыткой attempt+1
// (attempt — номер только что неудавшейся попытки, начиная с 1).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if p == nil {
		return time.Second
	}

	initialDelay := p.InitialDelay
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	var delay time.Duration
	switch p.Backoff {
	case BackoffExponential:
		// delay = initialDelay * 2^(attempt-1)
		delay = initialDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay > maxDelay {
				break
			}
		}
	default:
		// fixed или не задано — используем initialDelay
		delay = initialDelay
	}

	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
