package domain

import (
	"encoding/json"
	"testing"
)

func TestContext_WithDoesNotMutateOriginal(t *testing.T) {
	base := NewContext(map[string]any{"orderId": "o-1"})

	next := base.With("paymentId", "p-1")

	if _, ok := base.Value("paymentId"); ok {
		t.Error("original context should not see paymentId")
	}
	if next.String("paymentId") != "p-1" {
		t.Error("new context should carry paymentId")
	}
	if next.String("orderId") != "o-1" {
		t.Error("new context should keep orderId")
	}
}

func TestContext_NewContextCopiesInput(t *testing.T) {
	values := map[string]any{"key": "value"}
	sc := NewContext(values)

	values["key"] = "mutated"

	if sc.String("key") != "value" {
		t.Error("context should not observe mutation of the source map")
	}
}

func TestContext_WithValues(t *testing.T) {
	sc := NewContext(map[string]any{"a": 1}).WithValues(map[string]any{"b": 2, "a": 3})

	if v, _ := sc.Value("a"); v != 3 {
		t.Errorf("a = %v, want 3", v)
	}
	if v, _ := sc.Value("b"); v != 2 {
		t.Errorf("b = %v, want 2", v)
	}
}

func TestContext_EventIsTransient(t *testing.T) {
	sc := NewContext(map[string]any{"orderId": "o-1"})
	withEvent := sc.WithEvent("approval", map[string]any{"approved": true})

	if withEvent.EventType() != "approval" {
		t.Errorf("EventType = %q, want approval", withEvent.EventType())
	}
	if v := withEvent.Event()["approved"]; v != true {
		t.Error("event payload should be available")
	}

	// Событие не попадает в сериализованный снапшот
	data, err := json.Marshal(withEvent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored Context
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.EventType() != "" {
		t.Error("event should not survive serialization")
	}
	if restored.String("orderId") != "o-1" {
		t.Error("values should survive serialization")
	}

	cleared := withEvent.WithoutEvent()
	if cleared.EventType() != "" {
		t.Error("WithoutEvent should drop the event")
	}
	if cleared.String("orderId") != "o-1" {
		t.Error("WithoutEvent should keep values")
	}
}
