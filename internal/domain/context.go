package domain

import "encoding/json"

// Context — данные, протягиваемые через все шаги execution.
//
// Context неизменяем: каждый With* возвращает новую копию, исходное
// значение не трогается. Ровно один Context является "текущим" для
// execution в каждый момент времени — он живёт в Execution и
// персистится после каждого перехода.
//
// Событие, доставленное через resume, доступно шагу через EventType()
// и Event(). Событие транзиентно: оно видно только тому вызову шага,
// который его потребляет, и не сериализуется в снапшот.
type Context struct {
	values map[string]any

	eventType string
	event     map[string]any
}

// NewContext создаёт Context из начальных значений (значения копируются).
func NewContext(values map[string]any) Context {
	return Context{values: copyValues(values)}
}

// Value возвращает значение по ключу.
func (c Context) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// String возвращает строковое значение по ключу.
// Пустая строка, если ключа нет или значение не строка.
func (c Context) String(key string) string {
	if v, ok := c.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// With возвращает копию Context с установленным значением.
func (c Context) With(key string, value any) Context {
	next := copyValues(c.values)
	next[key] = value
	return Context{values: next, eventType: c.eventType, event: c.event}
}

// WithValues возвращает копию Context с добавленными значениями.
func (c Context) WithValues(values map[string]any) Context {
	next := copyValues(c.values)
	for k, v := range values {
		next[k] = v
	}
	return Context{values: next, eventType: c.eventType, event: c.event}
}

// WithEvent возвращает копию Context с доступным событием.
// Используется Resume Gateway перед повторным вызовом ждущего шага.
func (c Context) WithEvent(eventType string, payload map[string]any) Context {
	return Context{
		values:    copyValues(c.values),
		eventType: eventType,
		event:     copyValues(payload),
	}
}

// WithoutEvent возвращает копию Context без события.
// Оркестратор снимает событие перед персистенцией снапшота.
func (c Context) WithoutEvent() Context {
	return Context{values: copyValues(c.values)}
}

// EventType возвращает тип доставленного события ("" — события нет).
func (c Context) EventType() string {
	return c.eventType
}

// Event возвращает payload доставленного события.
func (c Context) Event() map[string]any {
	return copyValues(c.event)
}

// Values возвращает копию всех значений (для сериализации и DTO).
func (c Context) Values() map[string]any {
	return copyValues(c.values)
}

// Len возвращает количество значений.
func (c Context) Len() int {
	return len(c.values)
}

// MarshalJSON сериализует только значения; событие транзиентно.
func (c Context) MarshalJSON() ([]byte, error) {
	if c.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.values)
}

// UnmarshalJSON восстанавливает значения из снапшота.
func (c *Context) UnmarshalJSON(data []byte) error {
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	c.values = values
	c.eventType = ""
	c.event = nil
	return nil
}

// copyValues делает неглубокую копию map.
// Вложенные значения считаются неизменяемыми по соглашению.
func copyValues(values map[string]any) map[string]any {
	next := make(map[string]any, len(values))
	for k, v := range values {
		next[k] = v
	}
	return next
}
