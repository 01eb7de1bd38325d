package orchestrator

import "github.com/phambaophuc/product-studio/internal/models"

// Observer receives every event in emission order. OnEvent runs on the
// emitting goroutine and must not block for long. It must not call Begin
// or Reset on the orchestrator that emitted the event.
type Observer interface {
	OnEvent(event models.Event)
}

type ObserverFunc func(event models.Event)

func (f ObserverFunc) OnEvent(event models.Event) {
	f(event)
}

// Observe registers obs and returns a function that removes it.
func (o *Orchestrator) Observe(obs Observer) func() {
	o.observersMu.Lock()
	id := o.nextObserverID
	o.nextObserverID++
	o.observers[id] = obs
	o.observersMu.Unlock()

	return func() {
		o.observersMu.Lock()
		delete(o.observers, id)
		o.observersMu.Unlock()
	}
}

// Subscribe returns a buffered event stream. Events are dropped while the
// buffer is full. The returned function unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe(buffer int) (<-chan models.Event, func()) {
	ch := make(chan models.Event, buffer)

	o.observersMu.Lock()
	id := o.nextObserverID
	o.nextObserverID++
	o.observers[id] = ObserverFunc(func(event models.Event) {
		select {
		case ch <- event:
		default:
		}
	})
	o.observersMu.Unlock()

	var closed bool
	return ch, func() {
		o.observersMu.Lock()
		defer o.observersMu.Unlock()
		if closed {
			return
		}
		closed = true
		delete(o.observers, id)
		close(ch)
	}
}

func (o *Orchestrator) emit(events ...models.Event) {
	o.observersMu.RLock()
	defer o.observersMu.RUnlock()

	for _, event := range events {
		if event.Time.IsZero() {
			event.Time = o.now()
		}
		for _, obs := range o.observers {
			obs.OnEvent(event)
		}
	}
}
