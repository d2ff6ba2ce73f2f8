package xmlserial

import "sync"

type (
	AttributeHandler          func(sender any, e *AttributeEvent)
	ElementHandler            func(sender any, e *ElementEvent)
	NodeHandler               func(sender any, e *NodeEvent)
	UnreferencedObjectHandler func(sender any, e *UnreferencedObjectEvent)
)

// Events holds the handlers for each notification kind. Handlers run
// synchronously on the decoding goroutine in registration order.
// A nil *Events raises nothing.
type Events struct {
	attribute    []AttributeHandler
	element      []ElementHandler
	node         []NodeHandler
	unreferenced []UnreferencedObjectHandler
	mu           sync.RWMutex
}

func (ev *Events) OnUnknownAttribute(h AttributeHandler) {
	ev.mu.Lock()
	ev.attribute = append(ev.attribute, h)
	ev.mu.Unlock()
}

func (ev *Events) OnUnknownElement(h ElementHandler) {
	ev.mu.Lock()
	ev.element = append(ev.element, h)
	ev.mu.Unlock()
}

func (ev *Events) OnUnknownNode(h NodeHandler) {
	ev.mu.Lock()
	ev.node = append(ev.node, h)
	ev.mu.Unlock()
}

func (ev *Events) OnUnreferencedObject(h UnreferencedObjectHandler) {
	ev.mu.Lock()
	ev.unreferenced = append(ev.unreferenced, h)
	ev.mu.Unlock()
}

func (ev *Events) hasAttribute() bool {
	if ev == nil {
		return false
	}
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	return len(ev.attribute) > 0
}

func (ev *Events) hasElement() bool {
	if ev == nil {
		return false
	}
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	return len(ev.element) > 0
}

func (ev *Events) hasNode() bool {
	if ev == nil {
		return false
	}
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	return len(ev.node) > 0
}

func (ev *Events) hasUnreferenced() bool {
	if ev == nil {
		return false
	}
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	return len(ev.unreferenced) > 0
}

// The notify methods snapshot the handler list so a handler may register
// further handlers without deadlocking; those run from the next event on.

func (ev *Events) notifyAttribute(sender any, e *AttributeEvent) {
	if ev == nil {
		return
	}
	ev.mu.RLock()
	hs := ev.attribute
	ev.mu.RUnlock()
	for _, h := range hs {
		h(sender, e)
	}
}

func (ev *Events) notifyElement(sender any, e *ElementEvent) {
	if ev == nil {
		return
	}
	ev.mu.RLock()
	hs := ev.element
	ev.mu.RUnlock()
	for _, h := range hs {
		h(sender, e)
	}
}

func (ev *Events) notifyNode(sender any, e *NodeEvent) {
	if ev == nil {
		return
	}
	ev.mu.RLock()
	hs := ev.node
	ev.mu.RUnlock()
	for _, h := range hs {
		h(sender, e)
	}
}

func (ev *Events) notifyUnreferenced(sender any, e *UnreferencedObjectEvent) {
	if ev == nil {
		return
	}
	ev.mu.RLock()
	hs := ev.unreferenced
	ev.mu.RUnlock()
	for _, h := range hs {
		h(sender, e)
	}
}
