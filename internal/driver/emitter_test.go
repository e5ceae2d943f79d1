package driver

import "testing"

func TestEmitEntityFanOut(t *testing.T) {
	var e Emitter

	var got []string
	e.OnEntity(func(ent Entity) { got = append(got, "a:"+ent.Key) })
	e.OnEntity(func(ent Entity) { got = append(got, "b:"+ent.Key) })

	e.EmitEntity(Entity{Key: "power"})

	if len(got) != 2 {
		t.Fatalf("expected 2 observer invocations, got %d", len(got))
	}
}

func TestDetachStopsDelivery(t *testing.T) {
	var e Emitter

	count := 0
	detach := e.OnEntity(func(Entity) { count++ })

	e.EmitEntity(Entity{Key: "power"})
	detach()
	e.EmitEntity(Entity{Key: "power"})

	if count != 1 {
		t.Errorf("observer invoked %d times after detach, want 1", count)
	}
}

func TestDetachIsIdempotent(t *testing.T) {
	var e Emitter

	count := 0
	detach := e.OnMessage(func(Message) { count++ })

	detach()
	detach() // second call must not panic or affect other observers

	e.OnMessage(func(Message) { count += 10 })
	e.EmitMessage(Message{Text: "hello"})

	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
}

func TestObserverMayDetachDuringEmit(t *testing.T) {
	var e Emitter

	var detach func()
	count := 0
	detach = e.OnEntity(func(Entity) {
		count++
		detach()
	})

	e.EmitEntity(Entity{Key: "once"})
	e.EmitEntity(Entity{Key: "twice"})

	if count != 1 {
		t.Errorf("observer invoked %d times, want 1", count)
	}
}
