package domain

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ForwardFunc — forward-действие шага.
//
// Получает context.Context (может нести дедлайн шага) и текущий
// Context саги. Возвращает Outcome либо ошибку; классификацию
// retryable несёт StepError.
type ForwardFunc func(ctx context.Context, sc Context) (Outcome, error)

// CompensateFunc — компенсирующее действие шага.
//
// Должно быть идемпотентным и безопасным, даже если forward-действие
// не выполнялось или выполнялось больше одного раза.
type CompensateFunc func(ctx context.Context, sc Context) error

// Step — именованная единица работы саги: пара forward/compensate.
//
// Step — неизменяемое определение, не несёт состояния выполнения.
// Состояние живёт в Execution.
type Step struct {
	// Name — уникальное имя шага внутри саги.
	Name string

	// Forward — основное действие.
	Forward ForwardFunc

	// Compensate — откат действия. Nil допустим для шагов без
	// побочных эффектов — такой шаг при компенсации пропускается.
	Compensate CompensateFunc

	// Timeout — таймаут одной попытки действия (0 — без таймаута).
	Timeout time.Duration

	// Retry — политика повторов (nil — одна попытка).
	Retry *RetryPolicy
}

// Definition — именованный упорядоченный список шагов.
//
// После создания Definition неизменяем и может разделяться между
// горутинами без синхронизации.
type Definition struct {
	name  string
	steps []Step
	index map[string]int
}

// NewDefinition создаёт и валидирует определение саги.
//
// Требования: непустое имя саги, хотя бы один шаг, у каждого шага
// непустое уникальное имя и forward-действие.
func NewDefinition(name string, steps ...Step) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty saga name", ErrInvalidDefinition)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: saga %q has no steps", ErrInvalidDefinition, name)
	}

	index := make(map[string]int, len(steps))
	for i, step := range steps {
		if step.Name == "" {
			return nil, fmt.Errorf("%w: saga %q step %d has empty name", ErrInvalidDefinition, name, i)
		}
		if step.Forward == nil {
			return nil, fmt.Errorf("%w: saga %q step %q has no forward action", ErrInvalidDefinition, name, step.Name)
		}
		if _, exists := index[step.Name]; exists {
			return nil, fmt.Errorf("%w: saga %q has duplicate step %q", ErrInvalidDefinition, name, step.Name)
		}
		index[step.Name] = i
	}

	return &Definition{
		name:  name,
		steps: append([]Step(nil), steps...),
		index: index,
	}, nil
}

// MustDefinition — NewDefinition с паникой при ошибке.
// Для регистрации саг при старте процесса.
func MustDefinition(name string, steps ...Step) *Definition {
	def, err := NewDefinition(name, steps...)
	if err != nil {
		panic(err)
	}
	return def
}

// Name возвращает имя саги.
func (d *Definition) Name() string {
	return d.name
}

// Len возвращает количество шагов.
func (d *Definition) Len() int {
	return len(d.steps)
}

// Step возвращает шаг по индексу.
func (d *Definition) Step(i int) Step {
	return d.steps[i]
}

// StepNames возвращает имена шагов по порядку.
func (d *Definition) StepNames() []string {
	names := make([]string, len(d.steps))
	for i, step := range d.steps {
		names[i] = step.Name
	}
	return names
}

// IndexOf возвращает индекс шага по имени.
func (d *Definition) IndexOf(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// Registry — реестр определений саг по имени.
//
// Заполняется при старте процесса, дальше только читается.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register добавляет определение саги.
func (r *Registry) Register(def *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrSagaExists, def.Name())
	}
	r.defs[def.Name()] = def
	return nil
}

// Get возвращает определение саги по имени.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSagaNotFound, name)
	}
	return def, nil
}

// Names возвращает имена зарегистрированных саг в алфавитном порядке.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
