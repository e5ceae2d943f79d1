package driver

import "sync"

// Emitter provides observer registration and event fan-out for drivers.
// Concrete drivers embed it to satisfy the OnEntity/OnMessage half of the
// Device interface and call EmitEntity/EmitMessage to notify observers.
//
// All methods are safe for concurrent use.
type Emitter struct {
	mu         sync.Mutex
	nextID     int
	entityFns  map[int]func(Entity)
	messageFns map[int]func(Message)
}

// OnEntity registers an observer for entity updates.
func (e *Emitter) OnEntity(fn func(Entity)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.entityFns == nil {
		e.entityFns = make(map[int]func(Entity))
	}
	id := e.nextID
	e.nextID++
	e.entityFns[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.entityFns, id)
	}
}

// OnMessage registers an observer for driver log messages.
func (e *Emitter) OnMessage(fn func(Message)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.messageFns == nil {
		e.messageFns = make(map[int]func(Message))
	}
	id := e.nextID
	e.nextID++
	e.messageFns[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.messageFns, id)
	}
}

// EmitEntity delivers an entity update to all registered observers.
// Observers are invoked synchronously on the caller's goroutine.
func (e *Emitter) EmitEntity(ent Entity) {
	for _, fn := range e.snapshotEntityFns() {
		fn(ent)
	}
}

// EmitMessage delivers a log message to all registered observers.
func (e *Emitter) EmitMessage(msg Message) {
	for _, fn := range e.snapshotMessageFns() {
		fn(msg)
	}
}

// snapshotEntityFns copies the observer set so emission does not hold the
// lock while observers run (an observer may detach itself).
func (e *Emitter) snapshotEntityFns() []func(Entity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fns := make([]func(Entity), 0, len(e.entityFns))
	for _, fn := range e.entityFns {
		fns = append(fns, fn)
	}
	return fns
}

func (e *Emitter) snapshotMessageFns() []func(Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fns := make([]func(Message), 0, len(e.messageFns))
	for _, fn := range e.messageFns {
		fns = append(fns, fn)
	}
	return fns
}
