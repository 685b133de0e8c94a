package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mwhitlock/sourcelink/internal/frame"
)

// Kind identifies one of the closed set of event variants.
type Kind int

const (
	KindConnected Kind = iota
	KindDisconnected
	KindMessage
	KindError
)

// Event names accepted by Subscribe. Message frames additionally dispatch
// under "message:<type>" (see MessageName).
const (
	NameConnected    = "connected"
	NameDisconnected = "disconnected"
	NameMessage      = "message"
	NameError        = "error"
)

// MessageName returns the type-scoped subscription name for a frame type.
func MessageName(frameType string) string {
	return NameMessage + ":" + frameType
}

// Event is the tagged variant delivered to subscribers. Kind selects which
// of the remaining fields are meaningful.
type Event struct {
	Kind   Kind
	Frame  frame.Frame // KindMessage
	Reason string      // KindDisconnected
	Err    error       // KindDisconnected (nil on clean shutdown), KindError
}

// Handler receives events synchronously, in subscription order.
type Handler func(Event)

type subscriber struct {
	id uuid.UUID
	fn Handler
}

// Dispatcher fans events out to subscribers. Delivery is synchronous with
// respect to the caller: each handler runs to completion before the next,
// and a panicking handler never prevents delivery to the rest.
type Dispatcher struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string][]subscriber
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger: logger,
		subs:   make(map[string][]subscriber),
	}
}

// Subscribe registers a handler for an event name and returns a function
// that removes the registration. Handlers for a name run in the order they
// subscribed.
func (d *Dispatcher) Subscribe(name string, h Handler) func() {
	id := uuid.New()

	d.mu.Lock()
	d.subs[name] = append(d.subs[name], subscriber{id: id, fn: h})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		list := d.subs[name]
		for i, s := range list {
			if s.id == id {
				d.subs[name] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Connected dispatches a connected event.
func (d *Dispatcher) Connected() {
	d.dispatch(NameConnected, Event{Kind: KindConnected})
}

// Disconnected dispatches a disconnected event. err is nil when the closure
// was deliberate; reason carries the close reason either way.
func (d *Dispatcher) Disconnected(reason string, err error) {
	d.dispatch(NameDisconnected, Event{Kind: KindDisconnected, Reason: reason, Err: err})
}

// Message dispatches an inbound frame, first to catch-all "message"
// subscribers, then to "message:<type>" subscribers.
func (d *Dispatcher) Message(f frame.Frame) {
	ev := Event{Kind: KindMessage, Frame: f}
	d.dispatch(NameMessage, ev)
	d.dispatch(MessageName(f.Type), ev)
}

// Error dispatches an error event.
func (d *Dispatcher) Error(err error) {
	d.dispatch(NameError, Event{Kind: KindError, Err: err})
}

func (d *Dispatcher) dispatch(name string, ev Event) {
	d.mu.Lock()
	list := make([]subscriber, len(d.subs[name]))
	copy(list, d.subs[name])
	d.mu.Unlock()

	for _, s := range list {
		d.invoke(name, s, ev)
	}
}

func (d *Dispatcher) invoke(name string, s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				"event", name,
				"subscriber", s.id,
				"panic", r,
			)
		}
	}()
	s.fn(ev)
}
