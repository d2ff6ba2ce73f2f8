package handle

import (
	"sync"

	"go.uber.org/zap"
)

// EventType identifies a handle lifecycle transition.
type EventType uint8

const (
	EventRegistered EventType = iota
	EventReleased
)

func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Event describes a lifecycle transition of a JSHandle.
type Event struct {
	Value  any
	Handle JSHandle
	Type   EventType
}

// Observer receives handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Disposer is implemented by values that need cleanup when their handle is
// released or the table closes.
type Disposer interface {
	Dispose()
}

// Table maps JSHandles to host values.
type Table struct {
	backend   *localBackend
	logger    *zap.Logger
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates an empty handle table.
func NewTable() *Table {
	return &Table{
		backend: newLocalBackend(),
		logger:  Logger(),
	}
}

// WithLogger replaces the table's logger.
func (t *Table) WithLogger(l *zap.Logger) *Table {
	if l != nil {
		t.logger = l
	}
	return t
}

// Register stores value and returns its handle. A closed table returns
// DisposedJSHandle.
func (t *Table) Register(value any) JSHandle {
	h, err := t.backend.create(value)
	if err != nil {
		t.logger.Debug("register rejected", zap.Error(err))
		return h
	}

	t.notify(Event{Type: EventRegistered, Handle: h, Value: value})
	return h
}

// Get returns the value registered under h.
func (t *Table) Get(h JSHandle) (any, bool) {
	return t.backend.get(h)
}

// Release drops h and returns its value. The handle number may be reused by
// a later Register.
func (t *Table) Release(h JSHandle) (any, bool) {
	value, ok := t.backend.drop(h)
	if !ok {
		return nil, false
	}

	if d, ok := value.(Disposer); ok {
		d.Dispose()
	}

	t.notify(Event{Type: EventReleased, Handle: h, Value: value})
	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return t.backend.len()
}

// Clear releases every live handle.
func (t *Table) Clear() {
	// Collect first; Release takes the backend lock.
	var handles []JSHandle
	t.backend.each(func(h JSHandle, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Release(h)
	}
}

// Close disposes all live values and stops accepting registrations.
func (t *Table) Close() error {
	for _, v := range t.backend.close() {
		if d, ok := v.(Disposer); ok {
			d.Dispose()
		}
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
